// Package gnmiclient implements client.Client over gNMI, exchanging data
// as JSON_IETF.
package gnmiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/pkg/api"
	"github.com/openconfig/gnmic/pkg/api/target"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"

	"github.com/fatihusta/holo-cli/pkg/client"
	"github.com/fatihusta/holo-cli/pkg/config"
)

const (
	// DefaultAddress is where holod listens for gNMI.
	DefaultAddress = "http://[::1]:50051"

	// CommitCommentKey is the request metadata key carrying the commit
	// comment.
	CommitCommentKey = "holo-commit-comment"

	encodingJSONIETF = "json_ietf"

	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	defaultBackoffMin   = 100 * time.Millisecond
	defaultBackoffMax   = 2 * time.Second
	defaultBackoffScale = 2
)

// Options configures the connection.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration

	Username string
	Password string

	TLS        bool
	TLSCA      string
	TLSCert    string
	TLSKey     string
	SkipVerify bool
}

// Option modifies Options.
type Option func(*Options)

// WithTimeout bounds connection setup and every request.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithRetries sets how often a request failing with a transient error is
// retried.
func WithRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithBackoff sets the delay before the first retry and its upper bound.
func WithBackoff(min, max time.Duration) Option {
	return func(o *Options) { o.BackoffMin, o.BackoffMax = min, max }
}

// WithCredentials sends a username and password with every request.
func WithCredentials(user, password string) Option {
	return func(o *Options) { o.Username, o.Password = user, password }
}

// WithTLS enables TLS. Empty file names use the system defaults.
func WithTLS(ca, cert, key string, skipVerify bool) Option {
	return func(o *Options) {
		o.TLS = true
		o.TLSCA, o.TLSCert, o.TLSKey = ca, cert, key
		o.SkipVerify = skipVerify
	}
}

// Client talks to the daemon over a single gNMI connection.
type Client struct {
	mu      sync.Mutex
	address string
	opts    Options
	target  *target.Target
}

var _ client.Client = (*Client)(nil)

// Dial connects to the daemon and checks that it answers a Capabilities
// request. address may carry an http:// or https:// scheme; https implies
// TLS. Any failure is returned as a *client.ConnectionError.
func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	o := Options{
		Timeout:    defaultTimeout,
		MaxRetries: defaultMaxRetries,
		BackoffMin: defaultBackoffMin,
		BackoffMax: defaultBackoffMax,
	}
	hostport := address
	switch {
	case strings.HasPrefix(address, "https://"):
		o.TLS = true
		hostport = strings.TrimPrefix(address, "https://")
	case strings.HasPrefix(address, "http://"):
		hostport = strings.TrimPrefix(address, "http://")
	}
	hostport = strings.TrimSuffix(hostport, "/")
	for _, opt := range opts {
		opt(&o)
	}

	targetOpts := []api.TargetOption{
		api.Name("holod"),
		api.Address(hostport),
		api.Timeout(o.Timeout),
		api.Insecure(!o.TLS),
		api.SkipVerify(o.SkipVerify),
	}
	if o.Username != "" {
		targetOpts = append(targetOpts, api.Username(o.Username))
	}
	if o.Password != "" {
		targetOpts = append(targetOpts, api.Password(o.Password))
	}
	if o.TLSCA != "" {
		targetOpts = append(targetOpts, api.TLSCA(o.TLSCA))
	}
	if o.TLSCert != "" {
		targetOpts = append(targetOpts, api.TLSCert(o.TLSCert))
	}
	if o.TLSKey != "" {
		targetOpts = append(targetOpts, api.TLSKey(o.TLSKey))
	}

	t, err := api.NewTarget(targetOpts...)
	if err != nil {
		return nil, &client.ConnectionError{Address: address, Err: err}
	}
	dialCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	if err := t.CreateGNMIClient(dialCtx); err != nil {
		return nil, &client.ConnectionError{Address: address, Err: err}
	}

	c := &Client{address: address, opts: o, target: t}
	if _, err := c.Capabilities(ctx); err != nil {
		t.Close()
		var connErr *client.ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &client.ConnectionError{Address: address, Err: err}
	}
	slog.Debug("connected to daemon", "address", hostport)
	return c, nil
}

// Capabilities returns the modules and encodings the daemon supports.
func (c *Client) Capabilities(ctx context.Context) (*client.Capabilities, error) {
	var resp *gnmipb.CapabilityResponse
	err := c.retry(ctx, "capabilities", transientRead, func(ctx context.Context) error {
		var err error
		resp, err = c.target.Capabilities(ctx)
		return err
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	caps := &client.Capabilities{Version: resp.GetGNMIVersion()}
	for _, m := range resp.GetSupportedModels() {
		caps.Modules = append(caps.Modules, client.Module{
			Name:         m.GetName(),
			Organization: m.GetOrganization(),
			Revision:     m.GetVersion(),
		})
	}
	for _, e := range resp.GetSupportedEncodings() {
		caps.Encodings = append(caps.Encodings, strings.ToLower(e.String()))
	}
	return caps, nil
}

// GetRunning returns the running configuration.
func (c *Client) GetRunning(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/", "config")
}

// GetState returns operational state below path.
func (c *Client) GetState(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, path, "state")
}

func (c *Client) get(ctx context.Context, path, dataType string) ([]byte, error) {
	req, err := api.NewGetRequest(
		api.Path(path),
		api.Encoding(encodingJSONIETF),
		api.DataType(dataType),
	)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	logRequest("get", req)

	var resp *gnmipb.GetResponse
	err = c.retry(ctx, "get", transientRead, func(ctx context.Context) error {
		var err error
		resp, err = c.target.Get(ctx, req)
		return err
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	logRequest("get response", resp)
	return mergeUpdates(resp.GetNotification())
}

// Commit sends all changes in one SetRequest, which the daemon applies
// as a single transaction. A non-empty comment travels as request
// metadata.
func (c *Client) Commit(ctx context.Context, changes []config.Change, comment string) error {
	if len(changes) == 0 {
		return nil
	}
	opts := make([]api.GNMIOption, 0, len(changes))
	for _, ch := range changes {
		switch ch.Op {
		case config.OpUpdate:
			opts = append(opts, api.Update(api.Path(ch.Path), api.Value(ch.Value, encodingJSONIETF)))
		case config.OpReplace:
			opts = append(opts, api.Replace(api.Path(ch.Path), api.Value(ch.Value, encodingJSONIETF)))
		case config.OpDelete:
			opts = append(opts, api.Delete(ch.Path))
		default:
			return fmt.Errorf("commit: unsupported operation %v", ch.Op)
		}
	}
	req, err := api.NewSetRequest(opts...)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if comment != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, CommitCommentKey, comment)
	}
	return c.set(ctx, req)
}

// Execute invokes an operation by sending its input as an update of the
// operation path. gNMI has no output channel for Set, so the response
// carries no data.
func (c *Client) Execute(ctx context.Context, path string, input []byte) ([]byte, error) {
	if len(input) == 0 {
		input = []byte("{}")
	}
	req, err := api.NewSetRequest(api.Update(api.Path(path), api.Value(string(input), encodingJSONIETF)))
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", path, err)
	}
	if err := c.set(ctx, req); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Client) set(ctx context.Context, req *gnmipb.SetRequest) error {
	logRequest("set", req)
	// A write is retried only when it never reached the daemon.
	err := c.retry(ctx, "set", transientWrite, func(ctx context.Context) error {
		resp, err := c.target.Set(ctx, req)
		if err == nil {
			logRequest("set response", resp)
		}
		return err
	})
	return c.mapError(err)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return nil
	}
	err := c.target.Close()
	c.target = nil
	return err
}

var (
	transientRead  = []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded}
	transientWrite = []codes.Code{codes.Unavailable}
)

// retry runs fn until it succeeds, fails with a code not in transient,
// or the retries are used up.
func (c *Client) retry(ctx context.Context, op string, transient []codes.Code, fn func(context.Context) error) error {
	c.mu.Lock()
	closed := c.target == nil
	c.mu.Unlock()
	if closed {
		return errors.New("client closed")
	}

	var err error
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil || attempt >= c.opts.MaxRetries || !isTransient(err, transient) {
			return err
		}
		delay := c.backoff(attempt)
		slog.Warn("transient error, retrying", "op", op, "attempt", attempt+1, "backoff", delay, "err", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BackoffMin
	for i := 0; i < attempt; i++ {
		d *= defaultBackoffScale
		if d >= c.opts.BackoffMax {
			return c.opts.BackoffMax
		}
	}
	return d
}

func isTransient(err error, transient []codes.Code) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	for _, code := range transient {
		if st.Code() == code {
			return true
		}
	}
	return false
}

// mapError turns gRPC status errors into the client error types: a
// rejection by the daemon becomes a ValidationError carrying its message
// and an unreachable daemon a ConnectionError.
func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.Aborted, codes.NotFound:
		return &client.ValidationError{Message: st.Message(), Err: err}
	case codes.Unavailable:
		return &client.ConnectionError{Address: c.address, Err: err}
	}
	return err
}

// mergeUpdates collects the JSON_IETF values of every update into one
// document. Updates at the root are merged member by member; others are
// placed under their path.
func mergeUpdates(notifications []*gnmipb.Notification) ([]byte, error) {
	doc := "{}"
	var single []byte
	count := 0
	for _, n := range notifications {
		for _, u := range n.GetUpdate() {
			val := u.GetVal()
			raw := val.GetJsonIetfVal()
			if raw == nil {
				raw = val.GetJsonVal()
			}
			if raw == nil {
				continue
			}
			if !gjson.ValidBytes(raw) {
				return nil, fmt.Errorf("invalid JSON in update for %s", elemPath(n.GetPrefix(), u.GetPath()))
			}
			count++
			single = raw

			elems := append(append([]*gnmipb.PathElem(nil), n.GetPrefix().GetElem()...), u.GetPath().GetElem()...)
			var err error
			if len(elems) == 0 {
				gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
					doc, err = sjson.SetRaw(doc, escapeKey(key.String()), value.Raw)
					return err == nil
				})
			} else {
				keys := make([]string, len(elems))
				for i, e := range elems {
					keys[i] = escapeKey(e.GetName())
				}
				doc, err = sjson.SetRaw(doc, strings.Join(keys, "."), string(raw))
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if count == 1 && len(notifications) == 1 && len(notifications[0].GetUpdate()) == 1 {
		// A single subtree is returned as is.
		u := notifications[0].GetUpdate()[0]
		if len(u.GetPath().GetElem())+len(notifications[0].GetPrefix().GetElem()) > 0 {
			return single, nil
		}
	}
	return []byte(doc), nil
}

func elemPath(prefix, path *gnmipb.Path) string {
	var b strings.Builder
	for _, e := range append(append([]*gnmipb.PathElem(nil), prefix.GetElem()...), path.GetElem()...) {
		b.WriteByte('/')
		b.WriteString(e.GetName())
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func escapeKey(key string) string {
	r := strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}

func logRequest(what string, m proto.Message) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("gnmi "+what, "message", prototext.MarshalOptions{}.Format(m))
}
