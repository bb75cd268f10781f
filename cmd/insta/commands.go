package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"insta/internal/analytics"
	"insta/internal/config"
	"insta/internal/jobs"
	"insta/internal/logging"
	"insta/internal/metrics"
	"insta/internal/model"
	"insta/internal/recommend"
	"insta/internal/screens"
	"insta/internal/theme"
	"insta/internal/util"
)

var errUsage = errors.New("missing argument")

func cmdInit(ctx context.Context, args []string) error {
	fs, _ := newFlags("init")
	path := fs.String("path", defaultConfigPath, "path to write config")
	_ = fs.Parse(args)
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner(os.Stdout)
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdLogin(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("login")
	user := fs.String("user", "", "user name")
	password := fs.String("password", "", "password (prompted when empty)")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	if *user == "" {
		*user, err = prompt("Username: ")
		if err != nil {
			return err
		}
	}
	if *password == "" {
		*password, err = promptPassword("Password: ")
		if err != nil {
			return err
		}
	}
	l := screens.NewLogin(ctx, a.sess)
	defer l.Close()
	msg, err := l.Submit(*user, *password)
	fmt.Println(msg)
	return err
}

func cmdLogout(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("logout")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	a.sess.Logout()
	fmt.Println("Logged out.")
	return nil
}

func cmdWhoami(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("whoami")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	u, ok := a.sess.CurrentUser()
	if !ok {
		fmt.Println("Not logged in.")
		return nil
	}
	printUser(u)
	if exp, ok := a.sess.CredentialExpiry(); ok {
		fmt.Printf("session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func cmdUsers(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("users")
	q := fs.String("q", "", "filter by name")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	l := screens.NewUserList(ctx, a.sess, a.api)
	defer l.Close()
	if err := l.Load(); err != nil {
		return err
	}
	for _, u := range l.Search(*q) {
		fmt.Println(theme.Handle(u.UserName), util.Truncate(u.Bio, 60))
	}
	return nil
}

func cmdUser(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("user")
	lists := fs.Bool("lists", false, "also print followers and following")
	_ = fs.Parse(args)
	name := fs.Arg(0)
	if name == "" {
		return fmt.Errorf("%w: user <name>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	up := screens.NewUserProfile(ctx, a.sess, a.api, name)
	defer up.Close()
	if err := up.Load(); err != nil {
		return err
	}
	printUser(up.Profile())
	fmt.Printf("posts: %d  you follow: %v\n", up.PostCount(), up.IsFollowing())
	for _, p := range up.Posts() {
		printPost(p)
	}
	if *lists {
		followers, err := up.Followers()
		if err != nil {
			return err
		}
		following, err := up.Following()
		if err != nil {
			return err
		}
		printEntries("followers", followers)
		printEntries("following", following)
	}
	return nil
}

func cmdFollow(ctx context.Context, args []string) error {
	return setFollow(ctx, "follow", args)
}

func cmdUnfollow(ctx context.Context, args []string) error {
	return setFollow(ctx, "unfollow", args)
}

func setFollow(ctx context.Context, op string, args []string) error {
	fs, cfgPath := newFlags(op)
	_ = fs.Parse(args)
	name := fs.Arg(0)
	if name == "" {
		return fmt.Errorf("%w: %s <name>", errUsage, op)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	up := screens.NewUserProfile(ctx, a.sess, a.api, name)
	defer up.Close()
	if op == "follow" {
		err = up.Follow()
	} else {
		err = up.Unfollow()
	}
	if err != nil {
		return err
	}
	a.record(ctx, op, name, nil)
	fmt.Printf("%sed %s\n", op, theme.Handle(name))
	return nil
}

func cmdFollowers(ctx context.Context, args []string) error {
	return ownList(ctx, "followers", args)
}

func cmdFollowing(ctx context.Context, args []string) error {
	return ownList(ctx, "following", args)
}

func ownList(ctx context.Context, kind string, args []string) error {
	fs, cfgPath := newFlags(kind)
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	p := screens.NewProfile(ctx, a.sess, a.api)
	defer p.Close()
	var list []model.FollowEntry
	if kind == "followers" {
		list, err = p.Followers()
	} else {
		list, err = p.Following()
	}
	if err != nil {
		return err
	}
	printEntries(kind, list)
	return nil
}

func cmdFeed(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("feed")
	limit := fs.Int("limit", 20, "max posts to show")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	f := screens.NewFeed(ctx, a.sess, a.api)
	defer f.Close()
	if err := f.Load(); err != nil {
		return err
	}
	for i, p := range f.Posts() {
		if i >= *limit {
			break
		}
		printPost(p)
	}
	return nil
}

func cmdLike(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("like")
	_ = fs.Parse(args)
	id := fs.Arg(0)
	if id == "" {
		return fmt.Errorf("%w: like <postID>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	f := screens.NewFeed(ctx, a.sess, a.api)
	defer f.Close()
	if err := f.Load(); err != nil {
		return err
	}
	p, err := f.ToggleLike(id)
	if err != nil {
		return err
	}
	typ := "like"
	if !p.IsLikedByUser {
		typ = "unlike"
	}
	a.record(ctx, typ, id, map[string]any{"author": p.UserName})
	fmt.Printf("%s %d likes\n", theme.Heart(p.IsLikedByUser), len(p.Likes))
	return nil
}

func cmdComment(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("comment")
	_ = fs.Parse(args)
	id := fs.Arg(0)
	text := util.NormalizeWhitespace(strings.Join(fs.Args()[min(1, fs.NArg()):], " "))
	if id == "" || text == "" {
		return fmt.Errorf("%w: comment <postID> <text>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	f := screens.NewFeed(ctx, a.sess, a.api)
	defer f.Close()
	if err := f.Load(); err != nil {
		return err
	}
	comments, err := f.AddComment(id, text)
	if err != nil {
		return err
	}
	post, _ := f.Post(id)
	a.record(ctx, "comment", id, map[string]any{"author": post.UserName})
	for _, c := range comments {
		fmt.Printf("  %s %s\n", theme.Handle(c.UserName), c.Comment)
	}
	return nil
}

func cmdPost(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("post")
	caption := fs.String("caption", "", "caption text")
	image := fs.String("image", "", "media URL")
	_ = fs.Parse(args)
	if *caption == "" && *image == "" {
		return fmt.Errorf("%w: post -caption <text> -image <url>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	p := screens.NewProfile(ctx, a.sess, a.api)
	defer p.Close()
	post, err := p.CreatePost(util.NormalizeWhitespace(*caption), *image)
	if err != nil {
		return err
	}
	a.record(ctx, "post", post.ID, nil)
	fmt.Println("posted", post.ID)
	return nil
}

func cmdDelete(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("delete")
	_ = fs.Parse(args)
	id := fs.Arg(0)
	if id == "" {
		return fmt.Errorf("%w: delete <postID>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	p := screens.NewProfile(ctx, a.sess, a.api)
	defer p.Close()
	if err := p.Load(); err != nil {
		return err
	}
	if err := p.DeletePost(id); err != nil {
		return err
	}
	a.record(ctx, "delete", id, nil)
	fmt.Printf("deleted %s, %d posts left\n", id, p.PostCount())
	return nil
}

func cmdMyPosts(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("myposts")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	p := screens.NewProfile(ctx, a.sess, a.api)
	defer p.Close()
	if err := p.Load(); err != nil {
		return err
	}
	u := p.User()
	fmt.Printf("%s  posts %d  followers %d  following %d\n", theme.Handle(u.UserName), p.PostCount(), len(u.Followers), len(u.Following))
	for _, post := range p.Posts() {
		printPost(post)
	}
	return nil
}

func cmdInbox(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("inbox")
	watch := fs.Bool("watch", false, "keep polling for new messages")
	interval := fs.Duration("interval", 0, "poll interval (defaults to config)")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	if !*watch {
		m := screens.NewMessages(ctx, a.sess, a.api)
		defer m.Close()
		if err := m.Load(); err != nil {
			return err
		}
		for _, th := range m.Threads() {
			printThread(th.With, th.Conversation)
		}
		return nil
	}

	if srv := metrics.StartServer(a.cfg.Metrics.Addr); srv != nil {
		defer srv.Close()
	}
	every := a.cfg.Inbox.PollInterval
	if *interval > 0 {
		every = *interval
	}
	if every <= 0 {
		every = jobs.DefaultPollInterval
	}
	me, _ := a.sess.CurrentUser()
	in := jobs.NewInbox(ctx, a.api, a.db, me.UserName)
	fmt.Printf("watching inbox every %s, Ctrl-C to stop\n", every)
	return jobs.WatchInbox(ctx, in, every, func(changes []jobs.Change) {
		for _, c := range changes {
			printThread(c.With, c.Conversation)
		}
	})
}

func cmdChat(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("chat")
	_ = fs.Parse(args)
	name := fs.Arg(0)
	if name == "" {
		return fmt.Errorf("%w: chat <name>", errUsage)
	}
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	up := screens.NewUserProfile(ctx, a.sess, a.api, name)
	defer up.Close()
	conv, err := up.StartChat()
	if err != nil {
		return err
	}
	printThread(name, conv)
	return nil
}

func cmdSuggest(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("suggest")
	hops := fs.Int("hops", 50, "max followed accounts to expand")
	top := fs.Int("top", 10, "suggestions to show")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.requireLogin(); err != nil {
		return err
	}
	if err := a.sess.RefreshProfile(ctx); err != nil {
		logging.Warn("suggest_profile_stale", map[string]any{"error": err.Error()})
	}
	me, ok := a.sess.CurrentUser()
	if !ok {
		return errNotLoggedIn
	}
	graph, err := recommend.DiscoverGraph(ctx, a.api, me, *hops)
	if err != nil {
		return err
	}
	f := screens.NewFeed(ctx, a.sess, a.api)
	defer f.Close()
	var fromFeed []recommend.Candidate
	if err := f.Load(); err == nil {
		fromFeed = recommend.DiscoverFromFeed(me, f.Posts())
	}
	now := time.Now().UTC()
	counts := recommend.CountInteractionsByAuthor(ctx, a.db, now.AddDate(0, 0, -30), now)
	recs := recommend.Rank(recommend.Merge(graph, fromFeed), counts)
	for i := 0; i < len(recs) && i < *top; i++ {
		r := recs[i]
		fmt.Printf("%s score=%.1f mutual=%d interactions=%d via=%s\n",
			theme.Handle(r.UserName), r.Score, r.Mutual, r.Interactions, strings.Join(r.Via, ","))
	}
	if len(recs) == 0 {
		fmt.Println("No suggestions yet. Follow a few people first.")
	}
	return nil
}

func cmdActivity(ctx context.Context, args []string) error {
	fs, cfgPath := newFlags("activity")
	hours := fs.Int("hours", 24, "look-back window in hours")
	_ = fs.Parse(args)
	a, err := openApp(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	now := time.Now().UTC()
	evts, err := a.db.LoadEventsRange(ctx, now.Add(-time.Duration(*hours)*time.Hour), now.Add(time.Second), "")
	if err != nil {
		return err
	}
	events := analytics.FromStored(evts)
	b := analytics.HourlyActivity(events)
	for _, k := range analytics.SortedBucketKeys(b) {
		fmt.Printf("%s -> %v\n", k.Local().Format("Jan 02 15:00"), b[k])
	}
	totals := analytics.Totals(events)
	for _, t := range analytics.SortedTypes(totals) {
		fmt.Printf("  %-8s %d\n", t, totals[t])
	}
	return nil
}

// record appends a mutation to the local activity log.
func (a *app) record(ctx context.Context, typ, target string, payload any) {
	if err := a.db.PutEvent(ctx, time.Now().UTC(), typ, target, payload); err != nil {
		logging.Warn("activity_record_failed", map[string]any{"type": typ, "error": err.Error()})
	}
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label)
	}
	fmt.Print(label)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printUser(u model.User) {
	fmt.Printf("%s  followers %d  following %d\n", theme.Handle(u.UserName), len(u.Followers), len(u.Following))
	if u.Bio != "" {
		fmt.Println(" ", u.Bio)
	}
}

func printPost(p model.Post) {
	fmt.Printf("[%s] %s %s  %s %d  comments %d\n", p.ID, theme.Handle(p.UserName), util.Truncate(p.Caption, 80),
		theme.Heart(p.IsLikedByUser), len(p.Likes), len(p.Comments))
	if p.Image != "" {
		fmt.Println("  ", p.Image)
	}
}

func printEntries(kind string, list []model.FollowEntry) {
	fmt.Printf("%s (%d)\n", kind, len(list))
	for _, e := range list {
		fmt.Println(" ", theme.Handle(e.UserName))
	}
}

func printThread(with string, c model.Conversation) {
	last := c.LastMessage
	if last == "" {
		last = "(no messages yet)"
	}
	ts := ""
	if !c.Timestamp.IsZero() {
		ts = c.Timestamp.Local().Format("Jan 02 15:04")
	}
	fmt.Printf("%s  %s  %s\n", theme.Handle(with), util.Truncate(last, 60), ts)
}
