package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/mbox-go/core/cluster"
	"github.com/codewandler/mbox-go/core/codec"
	"github.com/codewandler/mbox-go/core/mailbox"
)

type NodeConfig struct {
	ID        string            `mapstructure:"id"`   // peer id (uuid), random if empty
	Name      string            `mapstructure:"name"` // label for logs and metrics
	Transport cluster.Transport `mapstructure:"-"`    // in-memory if nil
}

type MailboxConfig struct {
	Realm             string `mapstructure:"realm"`
	Codec             string `mapstructure:"codec"`
	CompressThreshold int    `mapstructure:"compress_threshold"`
	ReportUnreachable bool   `mapstructure:"report_unreachable"`
	ContextBufferSize int    `mapstructure:"context_buffer_size"`
}

type Config struct {
	Context context.Context `mapstructure:"-"`
	Log     *slog.Logger    `mapstructure:"-"`
	Node    NodeConfig      `mapstructure:"node"`
	Mailbox MailboxConfig   `mapstructure:"mailbox"`

	ClusterMetrics cluster.ClusterMetrics `mapstructure:"-"`
	MailboxMetrics mailbox.MailboxMetrics `mapstructure:"-"`
}

type App struct {
	ctx       context.Context
	log       *slog.Logger
	cancelCtx context.CancelFunc
	node      *cluster.Node
	manager   *mailbox.Manager

	ownTransport cluster.Transport
	stopOnce     sync.Once
	done         chan struct{}
}

func New(config Config) (app *App, err error) {
	app = &App{done: make(chan struct{})}

	// === node config ===
	nodeConfig := config.Node
	if nodeConfig.Name == "" {
		nodeConfig.Name = fmt.Sprintf("node-%s", gonanoid.Must(6))
	}
	var peerID cluster.PeerID
	if nodeConfig.ID != "" {
		if peerID, err = cluster.ParsePeerID(nodeConfig.ID); err != nil {
			return nil, fmt.Errorf("node id: %w", err)
		}
	}
	if nodeConfig.Transport == nil {
		nodeConfig.Transport = cluster.NewInMemoryTransport()
		app.ownTransport = nodeConfig.Transport
	}

	// === mailbox config ===
	mbConfig := config.Mailbox
	c, err := codec.ByName(mbConfig.Codec)
	if err != nil {
		return nil, err
	}
	realm := mailbox.DefaultRealm
	if mbConfig.Realm != "" {
		realm = mailbox.NewRealm(mbConfig.Realm)
	}

	// === logger ===
	if config.Log == nil {
		config.Log = slog.Default()
	}
	app.log = config.Log.With(slog.String("node", nodeConfig.Name))

	// === context ===
	if config.Context == nil {
		config.Context = context.Background()
	}
	app.ctx, app.cancelCtx = context.WithCancel(config.Context)

	app.log.Debug("creating app", slog.String("realm", realm.String()), slog.String("codec", c.Name()))

	app.node = cluster.NewNode(cluster.NodeOptions{
		Log:       config.Log,
		ID:        peerID,
		Name:      nodeConfig.Name,
		Transport: nodeConfig.Transport,
		Metrics:   config.ClusterMetrics,
	})

	app.manager = mailbox.NewManager(app.node, mailbox.ManagerOptions{
		Log:               config.Log,
		Realm:             realm,
		Codec:             c,
		CompressThreshold: mbConfig.CompressThreshold,
		ReportUnreachable: mbConfig.ReportUnreachable,
		ContextBufferSize: mbConfig.ContextBufferSize,
		Metrics:           config.MailboxMetrics,
	})

	return app, nil
}

func (a *App) Node() *cluster.Node { return a.node }

func (a *App) Manager() *mailbox.Manager { return a.manager }

// Done is closed once the app has stopped.
func (a *App) Done() <-chan struct{} { return a.done }

func (a *App) Run() (err error) {
	err = a.manager.Run(a.ctx)
	if err != nil {
		return err
	}

	context.AfterFunc(a.ctx, a.Stop)
	a.log.Info("app started", slog.String("peer", a.node.ID().String()))

	return nil
}

// Stop closes the manager and, if the app created it, the transport.
// It is safe to call more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.cancelCtx()
		a.manager.Close()
		if a.ownTransport != nil {
			if err := a.ownTransport.Close(); err != nil {
				a.log.Warn("closing transport", slog.Any("error", err))
			}
		}
		a.log.Info("app stopped")
		close(a.done)
	})
}

// Shutdown stops the app and waits until it is done or ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	go a.Stop()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func Run(config Config) (app *App, err error) {
	app, err = New(config)
	if err != nil {
		return nil, err
	}

	err = app.Run()
	if err != nil {
		return nil, err
	}

	return app, nil
}
