package server

import (
	"context"

	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/configurator"
	pb "github.com/sergds/dnschanger/internal/rpc"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DNSChangerServer serves one changer.Changer over gRPC.
type DNSChangerServer struct {
	pb.UnimplementedDNSChangerServer
	changer *changer.Changer
	log     logrus.FieldLogger
}

func NewDNSChangerServer(c *changer.Changer, log logrus.FieldLogger) *DNSChangerServer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DNSChangerServer{changer: c, log: log}
}

func (s *DNSChangerServer) ListProfiles(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return pb.ProfilesStruct(s.changer.ListProfiles()), nil
}

func (s *DNSChangerServer) AddProfile(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	p := pb.ProfileFromStruct(in)
	if err := s.changer.AddProfile(p.Name, p.Addresses[0], p.Addresses[1]); err != nil {
		return nil, pb.ToStatus(err)
	}
	s.log.WithField("profile", p.Name).Info("profile saved")
	return &emptypb.Empty{}, nil
}

func (s *DNSChangerServer) RemoveProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name := pb.NameFromStruct(in)
	removed, err := s.changer.RemoveProfile(name)
	if err != nil {
		return nil, pb.ToStatus(err)
	}
	if removed {
		s.log.WithField("profile", name).Info("profile removed")
	}
	return pb.RemovedStruct(removed), nil
}

func (s *DNSChangerServer) ListAdapters(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.changer.Status()
	if err != nil {
		return nil, pb.ToStatus(err)
	}
	return pb.AdaptersStruct(st.Backend, st.Adapters), nil
}

func (s *DNSChangerServer) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.changer.Status()
	if err != nil {
		return nil, pb.ToStatus(err)
	}
	return pb.StatusStruct(st), nil
}

func (s *DNSChangerServer) ApplyProfile(in *structpb.Struct, ss pb.ProgressStream) error {
	name := pb.NameFromStruct(in)
	s.log.WithField("profile", name).Info(pb.DescribeState(pb.OP_APPLY))
	report, err := s.changer.ApplyProfile(name, s.progress(ss))
	if err != nil {
		return pb.ToStatus(err)
	}
	return ss.Send(pb.DoneStruct(report))
}

func (s *DNSChangerServer) ClearAll(_ *emptypb.Empty, ss pb.ProgressStream) error {
	s.log.Info(pb.DescribeState(pb.OP_CLEAR))
	report, err := s.changer.ClearAll(s.progress(ss))
	if err != nil {
		return pb.ToStatus(err)
	}
	return ss.Send(pb.DoneStruct(report))
}

// progress forwards percentages to the caller. The run goes on even if the caller is gone.
func (s *DNSChangerServer) progress(ss pb.ProgressStream) configurator.ProgressFunc {
	return func(percent int) {
		if err := ss.Send(pb.ProgressStruct(percent)); err != nil {
			s.log.WithError(err).Debug("progress not delivered")
		}
	}
}
