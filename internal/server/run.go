package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/grandcat/zeroconf"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/config"
	pb "github.com/sergds/dnschanger/internal/rpc"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"
	"google.golang.org/grpc"
)

type Options struct {
	Listen    string
	Advertise bool
	// Listener, when set, is used for the first Serve instead of listening on Listen.
	Listener net.Listener
	Log      logrus.FieldLogger
}

// ServerMain runs the server until SIGINT or SIGTERM.
func ServerMain(c *changer.Changer, opts Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, c, opts)
}

// Run serves c over gRPC, and advertises it over mDNS if asked to, until ctx is done.
func Run(ctx context.Context, c *changer.Changer, opts Options) error {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Listen == "" {
		opts.Listen = config.DefaultListen
	}
	log := opts.Log
	supervisor := suture.New("server", suture.Spec{
		EventHook: func(ev suture.Event) {
			log.WithField("event", ev.Type()).Error(ev.String())
		},
	})
	supervisor.Add(&grpcService{
		handler: NewDNSChangerServer(c, log),
		addr:    opts.Listen,
		lis:     opts.Listener,
		log:     log,
	})
	if opts.Advertise {
		if err := advertisable(opts.Listen); err != nil {
			log.WithError(err).Warn("not advertising over mDNS")
		} else {
			supervisor.Add(&mdnsService{addr: opts.Listen, log: log})
		}
	}

	err := supervisor.Serve(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Info("server stopped")
		return nil
	}
	return fmt.Errorf("serve: %w", err)
}

// advertisable rejects listen addresses other hosts could not reach.
func advertisable(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("bad listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return fmt.Errorf("listen address %s is loopback only", addr)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return fmt.Errorf("listen address %s is loopback only", addr)
	}
	return nil
}

type grpcService struct {
	handler pb.DNSChangerServer
	addr    string
	lis     net.Listener
	log     logrus.FieldLogger
}

func (g *grpcService) listen() (net.Listener, error) {
	if g.lis != nil {
		lis := g.lis
		g.lis = nil
		return lis, nil
	}
	return net.Listen("tcp", g.addr)
}

func (g *grpcService) Serve(ctx context.Context) error {
	lis, err := g.listen()
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s := grpc.NewServer()
	pb.RegisterDNSChangerServer(s, g.handler)

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(lis) }()
	g.log.WithField("addr", lis.Addr().String()).Info("dnschanger server running")

	select {
	case <-ctx.Done():
		s.GracefulStop()
		<-errc
		return ctx.Err()
	case err := <-errc:
		return fmt.Errorf("grpc: %w", err)
	}
}

func (g *grpcService) String() string { return "grpc " + g.addr }

type mdnsService struct {
	addr string
	log  logrus.FieldLogger
}

func (m *mdnsService) Serve(ctx context.Context) error {
	_, portStr, err := net.SplitHostPort(m.addr)
	if err != nil {
		return fmt.Errorf("%w: bad listen address %q: %v", suture.ErrDoNotRestart, m.addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%w: bad listen port %q", suture.ErrDoNotRestart, portStr)
	}
	host, _ := os.Hostname()
	server, err := zeroconf.Register("DNSChanger @ "+host, config.ServiceType, "local.", port, []string{"txtv=0", "host=" + host}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize mDNS: %w", err)
	}
	defer server.Shutdown()
	m.log.WithFields(logrus.Fields{"service": config.ServiceType, "port": port}).Info("advertising over mDNS")
	<-ctx.Done()
	return ctx.Err()
}

func (m *mdnsService) String() string { return "mdns " + config.ServiceType }
