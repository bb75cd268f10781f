package screens

import (
	"context"

	"insta/internal/apiclient"
	"insta/internal/model"
)

// Thread is a conversation as listed on the messages page.
type Thread struct {
	model.Conversation
	With string
}

type Messages struct {
	*scope
	sess    Session
	api     apiclient.API
	threads []Thread
}

func NewMessages(ctx context.Context, sess Session, api apiclient.API) *Messages {
	return &Messages{scope: newScope(ctx), sess: sess, api: api, threads: []Thread{}}
}

func (m *Messages) Load() error {
	me, err := requireUser(m.sess)
	if err != nil {
		return err
	}
	convs, err := m.api.Conversations(m.ctx, me.UserName)
	if err != nil {
		return boundary(m.sess, "", "conversations", err)
	}
	threads := make([]Thread, 0, len(convs))
	for _, c := range convs {
		threads = append(threads, Thread{Conversation: c, With: c.OtherParty(me.UserName)})
	}
	return m.commit(func() { m.threads = threads })
}

func (m *Messages) Threads() []Thread {
	var out []Thread
	m.read(func() { out = append([]Thread{}, m.threads...) })
	return out
}
