package logx

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

type jsonhandler struct {
	Out    io.Writer
	Err    io.Writer
	Option *slog.HandlerOptions
	attrs  []groupedAttr
	groups []string
	mu     *sync.Mutex
}

var _ slog.Handler = &jsonhandler{}

// groupedAttr remembers the groups open when WithAttrs was called.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

type Option func(*jsonhandler)

// WithErrorWriter sends error records to w instead of the main writer.
func WithErrorWriter(w io.Writer) Option {
	return func(h *jsonhandler) {
		h.Err = w
	}
}

func WithLevel(level slog.Leveler) Option {
	return func(h *jsonhandler) {
		h.Option.Level = level
	}
}

func WithAddSource(add bool) Option {
	return func(h *jsonhandler) {
		h.Option.AddSource = add
	}
}

func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(h *jsonhandler) {
		h.Option.ReplaceAttr = fn
	}
}

// New returns a handler writing one JSON object per record. Register sets
// ([8]uint32, []uint32) and byte slices are written as hex strings.
func New(o io.Writer, opts ...Option) *jsonhandler {
	if o == nil {
		o = io.Discard
	}
	var s jsonhandler
	s.Option = &slog.HandlerOptions{}
	s.Out = o
	s.mu = new(sync.Mutex)
	for _, v := range opts {
		v(&s)
	}
	if s.Err == nil {
		s.Err = s.Out
	}
	return &s
}

// NewLogger is a shortcut for slog.New(New(o, opts...)).
func NewLogger(o io.Writer, opts ...Option) *slog.Logger {
	return slog.New(New(o, opts...))
}

func (s *jsonhandler) clone() *jsonhandler {
	return &jsonhandler{
		Out:    s.Out,
		Err:    s.Err,
		Option: s.Option,
		attrs:  s.attrs[:len(s.attrs):len(s.attrs)],
		groups: s.groups[:len(s.groups):len(s.groups)],
		mu:     s.mu,
	}
}

func (s *jsonhandler) Enabled(ctx context.Context, l slog.Level) bool {
	var min slog.Level
	if s.Option.Level != nil {
		min = s.Option.Level.Level()
	}
	return l >= min
}

func (s *jsonhandler) Handle(ctx context.Context, r slog.Record) (e error) {
	if !s.Enabled(ctx, r.Level) {
		return
	}
	var msg = map[string]any{
		slog.MessageKey: r.Message,
		slog.TimeKey:    r.Time.String(),
		slog.LevelKey:   r.Level.String(),
	}
	if s.Option.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		msg[slog.SourceKey] = f.File + ":" + strconv.Itoa(f.Line)
	}

	for _, v := range s.attrs {
		s.put(msg, v.groups, v.attr)
	}
	r.Attrs(func(v slog.Attr) bool {
		s.put(msg, s.groups, v)
		return true
	})

	var buf []byte
	if buf, e = marshal(msg); e != nil {
		return
	}
	buf = append(buf, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Level >= slog.LevelError && s.Err != nil {
		_, e = s.Err.Write(buf)
	} else {
		_, e = s.Out.Write(buf)
	}
	return
}

// put hands ReplaceAttr the bare key and prefixes it with the groups
// afterwards.
func (s *jsonhandler) put(msg map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		sub := groups
		if a.Key != "" {
			sub = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, v := range a.Value.Group() {
			s.put(msg, sub, v)
		}
		return
	}
	if s.Option.ReplaceAttr != nil {
		a = s.Option.ReplaceAttr(groups, a)
	}
	if a.Key == "" {
		return
	}
	if len(groups) > 0 {
		a.Key = strings.Join(groups, ".") + "." + a.Key
	}
	msg[a.Key] = render(a.Value)
}

func render(v slog.Value) any {
	if v.Kind() != slog.KindAny {
		return v.Any()
	}
	switch x := v.Any().(type) {
	case []byte:
		return hex.EncodeToString(x)
	case [8]uint32:
		return words(x[:])
	case []uint32:
		return words(x)
	case error:
		return x.Error()
	}
	return v.Any()
}

func words(x []uint32) string {
	var b strings.Builder
	for i, w := range x {
		if i > 0 {
			b.WriteByte(' ')
		}
		var tmp [8]byte
		hex.Encode(tmp[:], []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)})
		b.Write(tmp[:])
	}
	return b.String()
}

func marshal(v any) ([]byte, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if e := enc.Encode(v); e != nil {
		return nil, e
	}
	return []byte(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *jsonhandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	a := s.clone()
	for _, v := range attrs {
		a.attrs = append(a.attrs, groupedAttr{groups: s.groups, attr: v})
	}
	return a
}

func (s *jsonhandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	a := s.clone()
	a.groups = append(a.groups, name)
	return a
}
