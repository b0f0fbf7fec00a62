package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/config"
	"github.com/sergds/dnschanger/internal/configurator"
	pb "github.com/sergds/dnschanger/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
)

const DefaultCallTimeout = 10 * time.Second

// Client talks to a remote dnschanger server. Its methods mirror changer.Changer; server
// errors come back matching the same sentinels (changer.ErrBusy, catalog.ErrValidation, ...).
type Client struct {
	conn    *grpc.ClientConn
	rpc     pb.DNSChangerClient
	timeout time.Duration
}

// Dial prepares a connection to addr ("host:port"). Nothing is sent until the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, rpc: pb.NewDNSChangerClient(conn), timeout: DefaultCallTimeout}, nil
}

func (c *Client) Target() string { return c.conn.Target() }

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *Client) ListProfiles() ([]catalog.Profile, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	out, err := c.rpc.ListProfiles(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, pb.FromStatus(err)
	}
	return pb.ProfilesFromStruct(out), nil
}

func (c *Client) AddProfile(name, primary, secondary string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	p := catalog.Profile{Name: name, Addresses: catalog.Pair{primary, secondary}}
	_, err := c.rpc.AddProfile(ctx, pb.ProfileStruct(p))
	return pb.FromStatus(err)
}

func (c *Client) RemoveProfile(name string) (bool, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	out, err := c.rpc.RemoveProfile(ctx, pb.NameStruct(name))
	if err != nil {
		return false, pb.FromStatus(err)
	}
	return pb.RemovedFromStruct(out), nil
}

func (c *Client) Adapters() (string, []dns.Adapter, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	out, err := c.rpc.ListAdapters(ctx, &emptypb.Empty{})
	if err != nil {
		return "", nil, pb.FromStatus(err)
	}
	backend, adapters := pb.AdaptersFromStruct(out)
	return backend, adapters, nil
}

func (c *Client) Status() (changer.Status, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	out, err := c.rpc.Status(ctx, &emptypb.Empty{})
	if err != nil {
		return changer.Status{}, pb.FromStatus(err)
	}
	return pb.StatusFromStruct(out), nil
}

// ApplyProfile has no deadline: the server runs it to the end anyway.
func (c *Client) ApplyProfile(name string, progress configurator.ProgressFunc) (*configurator.ApplyReport, error) {
	stream, err := c.rpc.ApplyProfile(context.Background(), pb.NameStruct(name))
	if err != nil {
		return nil, pb.FromStatus(err)
	}
	return follow(stream, progress)
}

func (c *Client) ClearAll(progress configurator.ProgressFunc) (*configurator.ApplyReport, error) {
	stream, err := c.rpc.ClearAll(context.Background(), &emptypb.Empty{})
	if err != nil {
		return nil, pb.FromStatus(err)
	}
	return follow(stream, progress)
}

// follow reads progress messages until the report arrives.
func follow(stream pb.ProgressClient, progress configurator.ProgressFunc) (*configurator.ApplyReport, error) {
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil, errors.New("server closed the stream without a report")
		}
		if err != nil {
			return nil, pb.FromStatus(err)
		}
		step, percent, report := pb.StreamMessage(msg)
		switch step {
		case pb.STEP_PROGRESS:
			if progress != nil {
				progress(percent)
			}
		case pb.STEP_DONE:
			return report, nil
		}
	}
}

// Discover browses mDNS for dnschanger servers for the given time and returns their
// addresses. With host set, only the server advertising that hostname is returned.
func Discover(ctx context.Context, host string, wait time.Duration) ([]string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	var mu sync.Mutex
	found := make([]*zeroconf.ServiceEntry, 0)
	entries := make(chan *zeroconf.ServiceEntry)
	go func(results <-chan *zeroconf.ServiceEntry) {
		for entry := range results {
			mu.Lock()
			found = append(found, entry)
			mu.Unlock()
		}
	}(entries)

	if err := resolver.Browse(ctx, config.ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	var addrs []string
	for _, e := range found {
		if host != "" && !hasText(e.Text, "host="+host) {
			continue
		}
		for _, ip := range e.AddrIPv4 {
			addrs = append(addrs, net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)))
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("failed to detect dnschanger servers through mDNS")
	}
	return addrs, nil
}

func hasText(txt []string, want string) bool {
	for _, t := range txt {
		if t == want {
			return true
		}
	}
	return false
}
