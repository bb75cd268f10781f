package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"insta/internal/apiclient"
	"insta/internal/cmdlog"
	"insta/internal/config"
	"insta/internal/logging"
	"insta/internal/screens"
	"insta/internal/session"
	"insta/internal/store/localdb"
	"insta/internal/theme"
)

const defaultConfigPath = "./insta.yaml"

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{"init", "Create a config file at ./insta.yaml", cmdInit},
	{"login", "Log in and remember the session", cmdLogin},
	{"logout", "Forget the stored session", cmdLogout},
	{"whoami", "Show the logged-in user", cmdWhoami},
	{"users", "List users, optionally filtered with -q", cmdUsers},
	{"user", "Show a user's profile: user <name>", cmdUser},
	{"follow", "Follow a user: follow <name>", cmdFollow},
	{"unfollow", "Unfollow a user: unfollow <name>", cmdUnfollow},
	{"followers", "List your followers", cmdFollowers},
	{"following", "List who you follow", cmdFollowing},
	{"feed", "Show the news feed", cmdFeed},
	{"like", "Like or unlike a post: like <postID>", cmdLike},
	{"comment", "Comment on a post: comment <postID> <text>", cmdComment},
	{"post", "Publish a post (-caption, -image)", cmdPost},
	{"delete", "Delete one of your posts: delete <postID>", cmdDelete},
	{"myposts", "List your posts", cmdMyPosts},
	{"inbox", "List conversations; -watch keeps polling", cmdInbox},
	{"chat", "Open or start a conversation: chat <name>", cmdChat},
	{"suggest", "Suggest accounts to follow", cmdSuggest},
	{"activity", "Show your hourly activity", cmdActivity},
}

func main() {
	name := ""
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	for _, c := range commands {
		if c.name != name {
			continue
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err := cmdlog.Run(c.name, func() error { return c.run(ctx, os.Args[2:]) })
		stop()
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", describe(err))
			os.Exit(1)
		}
		return
	}
	printHelp()
}

func printHelp() {
	theme.PrintBanner(os.Stdout)
	fmt.Println("Usage: insta <command> [options]")
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Printf("  %-10s  %s\n", c.name, c.usage)
	}
}

func describe(err error) string {
	if errors.Is(err, errNotLoggedIn) {
		return "You are not logged in. Run `insta login` first."
	}
	if msg := screens.Describe(err); msg != "" {
		return msg
	}
	return err.Error()
}

// app is what every command works with once the config is loaded.
type app struct {
	cfg  config.Config
	db   *localdb.DB
	api  *apiclient.HTTPClient
	sess *session.Store
}

func newFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config path")
	return fs, cfgPath
}

// openApp loads config, opens the local store and restores the session. A
// failed restore is reported and leaves the session logged out.
func openApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.JSON)
	db, err := localdb.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	api := apiclient.New(cfg.API)
	sess := session.New(api, db)
	sess.OnInvalidate(func(cause error) {
		fmt.Fprintln(os.Stderr, "Your session has ended. Run `insta login` to sign in again.")
	})
	if err := sess.Restore(ctx); err != nil {
		logging.Warn("session_restore_failed", map[string]any{"error": err.Error()})
	}
	return &app{cfg: cfg, db: db, api: api, sess: sess}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		logging.Warn("db_close_failed", map[string]any{"error": err.Error()})
	}
}

var errNotLoggedIn = errors.New("not logged in")

func (a *app) requireLogin() error {
	if a.sess.State() != session.Authenticated {
		return errNotLoggedIn
	}
	return nil
}
