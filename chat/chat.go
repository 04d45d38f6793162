// Package chat wraps the Twitch IRC connection. It delivers inbound channel
// messages to a single handler and sends replies back to the channel; all
// command semantics live in the bot package.
package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Message is one inbound chat line.
type Message struct {
	Sender string
	Text   string
}

// Client connects the bot account to one channel.
type Client struct {
	tc      *twitch.Client
	channel string
}

// New builds a client for the given bot account. oauthToken must be a user
// token with chat scopes, "oauth:" prefixed (twitchapi.AcquireUserToken
// returns it in that form).
func New(username, oauthToken, channel string) *Client {
	return &Client{tc: twitch.NewClient(username, oauthToken), channel: channel}
}

// OnMessage registers the single inbound handler. Must be called before Run.
func (c *Client) OnMessage(fn func(Message)) {
	c.tc.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		fn(Message{Sender: msg.User.Name, Text: msg.Message})
	})
}

// Say sends a line to the channel.
func (c *Client) Say(text string) {
	c.tc.Say(c.channel, text)
}

// Run joins the channel and blocks on the IRC connection until it drops or
// ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := c.tc.Disconnect(); err != nil {
			slog.Debug("twitch chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	c.tc.Join(c.channel)
	slog.Info("joining twitch channel", slog.String("channel", c.channel))
	if err := c.tc.Connect(); err != nil {
		select {
		case <-ctx.Done():
			// Disconnect on shutdown surfaces as a connect error; not a fault.
		default:
			return err
		}
	}
	<-done
	return nil
}
