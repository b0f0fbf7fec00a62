package rpc

import (
	"errors"
	"time"

	"github.com/sergds/dnschanger/internal/adapters/dns"
	"github.com/sergds/dnschanger/internal/catalog"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/journal"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used inside the structpb messages.
const (
	FieldName      = "name"
	FieldPrimary   = "primary"
	FieldSecondary = "secondary"
	FieldProfiles  = "profiles"
	FieldRemoved   = "removed"
	FieldBackend   = "backend"
	FieldAdapters  = "adapters"
	FieldActive    = "active"
	FieldLast      = "last"
	FieldStep      = "step"
	FieldPercent   = "percent"
	FieldReport    = "report"
)

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func strList(ss []string) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(ss))
	for _, s := range ss {
		vals = append(vals, str(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func list(ss []*structpb.Struct) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(ss))
	for _, s := range ss {
		vals = append(vals, structpb.NewStructValue(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func getStr(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getStrList(s *structpb.Struct, key string) []string {
	var out []string
	for _, v := range s.GetFields()[key].GetListValue().GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

func getStructs(s *structpb.Struct, key string) []*structpb.Struct {
	var out []*structpb.Struct
	for _, v := range s.GetFields()[key].GetListValue().GetValues() {
		out = append(out, v.GetStructValue())
	}
	return out
}

func getTime(s *structpb.Struct, key string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, getStr(s, key))
	return t
}

func ProfileStruct(p catalog.Profile) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldName:      str(p.Name),
		FieldPrimary:   str(p.Addresses[0]),
		FieldSecondary: str(p.Addresses[1]),
	}}
}

func ProfileFromStruct(s *structpb.Struct) catalog.Profile {
	return catalog.Profile{
		Name:      getStr(s, FieldName),
		Addresses: catalog.Pair{getStr(s, FieldPrimary), getStr(s, FieldSecondary)},
	}
}

func ProfilesStruct(ps []catalog.Profile) *structpb.Struct {
	items := make([]*structpb.Struct, 0, len(ps))
	for _, p := range ps {
		items = append(items, ProfileStruct(p))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldProfiles: list(items)}}
}

func ProfilesFromStruct(s *structpb.Struct) []catalog.Profile {
	var out []catalog.Profile
	for _, item := range getStructs(s, FieldProfiles) {
		out = append(out, ProfileFromStruct(item))
	}
	return out
}

func NameStruct(name string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldName: str(name)}}
}

func NameFromStruct(s *structpb.Struct) string {
	return getStr(s, FieldName)
}

func RemovedStruct(removed bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldRemoved: structpb.NewBoolValue(removed)}}
}

func RemovedFromStruct(s *structpb.Struct) bool {
	return s.GetFields()[FieldRemoved].GetBoolValue()
}

func adapterStruct(a dns.Adapter) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":    str(a.ID),
		"name":  str(a.Name),
		"index": structpb.NewNumberValue(float64(a.Index)),
	}}
}

func adapterFromStruct(s *structpb.Struct) dns.Adapter {
	return dns.Adapter{
		ID:    getStr(s, "id"),
		Name:  getStr(s, "name"),
		Index: int(s.GetFields()["index"].GetNumberValue()),
	}
}

func adaptersValue(as []dns.Adapter) *structpb.Value {
	items := make([]*structpb.Struct, 0, len(as))
	for _, a := range as {
		items = append(items, adapterStruct(a))
	}
	return list(items)
}

func adaptersFromStruct(s *structpb.Struct) []dns.Adapter {
	var out []dns.Adapter
	for _, item := range getStructs(s, FieldAdapters) {
		out = append(out, adapterFromStruct(item))
	}
	return out
}

func AdaptersStruct(backend string, as []dns.Adapter) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldBackend:  str(backend),
		FieldAdapters: adaptersValue(as),
	}}
}

func AdaptersFromStruct(s *structpb.Struct) (string, []dns.Adapter) {
	return getStr(s, FieldBackend), adaptersFromStruct(s)
}

func entryStruct(e journal.Entry) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        str(e.ID),
		"op":        str(e.Op),
		"profile":   str(e.Profile),
		"addresses": strList(e.Addresses),
		"adapters":  strList(e.Adapters),
		"failed":    strList(e.Failed),
		"time":      str(e.Time.Format(time.RFC3339Nano)),
	}}
}

func entryFromStruct(s *structpb.Struct) journal.Entry {
	return journal.Entry{
		ID:        getStr(s, "id"),
		Op:        getStr(s, "op"),
		Profile:   getStr(s, "profile"),
		Addresses: getStrList(s, "addresses"),
		Adapters:  getStrList(s, "adapters"),
		Failed:    getStrList(s, "failed"),
		Time:      getTime(s, "time"),
	}
}

func StatusStruct(st changer.Status) *structpb.Struct {
	s := AdaptersStruct(st.Backend, st.Adapters)
	s.Fields[FieldActive] = str(st.Active)
	if st.Last != nil {
		s.Fields[FieldLast] = structpb.NewStructValue(entryStruct(*st.Last))
	}
	return s
}

func StatusFromStruct(s *structpb.Struct) changer.Status {
	st := changer.Status{
		Backend:  getStr(s, FieldBackend),
		Adapters: adaptersFromStruct(s),
		Active:   getStr(s, FieldActive),
	}
	if last := s.GetFields()[FieldLast].GetStructValue(); last != nil {
		e := entryFromStruct(last)
		st.Last = &e
	}
	return st
}

func ProgressStruct(percent int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStep:    str(STEP_PROGRESS),
		FieldPercent: structpb.NewNumberValue(float64(percent)),
	}}
}

func reportStruct(r *configurator.ApplyReport) *structpb.Struct {
	results := make([]*structpb.Struct, 0, len(r.Results))
	for _, res := range r.Results {
		item := &structpb.Struct{Fields: map[string]*structpb.Value{
			"adapter": structpb.NewStructValue(adapterStruct(res.Adapter)),
		}}
		if res.Err != nil {
			item.Fields["error"] = str(res.Err.Error())
		}
		results = append(results, item)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"op":        str(r.Op),
		"addresses": strList(r.Addresses),
		"results":   list(results),
		"started":   str(r.Started.Format(time.RFC3339Nano)),
		"finished":  str(r.Finished.Format(time.RFC3339Nano)),
	}}
}

func reportFromStruct(s *structpb.Struct) *configurator.ApplyReport {
	r := &configurator.ApplyReport{
		Op:        getStr(s, "op"),
		Addresses: getStrList(s, "addresses"),
		Started:   getTime(s, "started"),
		Finished:  getTime(s, "finished"),
	}
	for _, item := range getStructs(s, "results") {
		res := configurator.AdapterResult{Adapter: adapterFromStruct(item.GetFields()["adapter"].GetStructValue())}
		if msg := getStr(item, "error"); msg != "" {
			res.Err = errors.New(msg)
		}
		r.Results = append(r.Results, res)
	}
	return r
}

func DoneStruct(r *configurator.ApplyReport) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStep:   str(STEP_DONE),
		FieldReport: structpb.NewStructValue(reportStruct(r)),
	}}
}

// StreamMessage decodes one ApplyProfile/ClearAll message. report is set only on STEP_DONE.
func StreamMessage(s *structpb.Struct) (step string, percent int, report *configurator.ApplyReport) {
	step = getStr(s, FieldStep)
	switch step {
	case STEP_PROGRESS:
		percent = int(s.GetFields()[FieldPercent].GetNumberValue())
	case STEP_DONE:
		report = reportFromStruct(s.GetFields()[FieldReport].GetStructValue())
	}
	return step, percent, report
}
