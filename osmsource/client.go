package osmsource

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmapi"

	"github.com/theoremus-urban-solutions/osmtrail/config"
)

// Client reads elements by id from the OSM API and by name from Overpass.
type Client struct {
	api         *osmapi.Datasource
	httpClient  *http.Client
	overpassURL string
	timeout     time.Duration
}

var _ Source = (*Client)(nil)

// NewClient creates a client for the endpoints in cfg. Empty endpoints fall
// back to the public OpenStreetMap services.
func NewClient(cfg config.OSMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = config.DefaultTimeoutMS * time.Millisecond
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: userAgentTransport{agent: cfg.UserAgent, next: http.DefaultTransport},
	}
	api := osmapi.NewDatasource(httpClient)
	api.BaseURL = strings.TrimSuffix(orDefault(cfg.APIURL, config.DefaultAPIURL), "/")
	return &Client{
		api:         api,
		httpClient:  httpClient,
		overpassURL: orDefault(cfg.OverpassURL, config.DefaultOverpassURL),
		timeout:     timeout,
	}
}

// Node reads a node from the OSM API.
func (c *Client) Node(ctx context.Context, id osm.NodeID) (*osm.Node, error) {
	n, err := c.api.Node(ctx, id)
	if err != nil {
		return nil, mapAPIError(fmt.Sprintf("node %d", id), err)
	}
	return n, nil
}

// Way reads a way from the OSM API.
func (c *Client) Way(ctx context.Context, id osm.WayID) (*osm.Way, error) {
	w, err := c.api.Way(ctx, id)
	if err != nil {
		return nil, mapAPIError(fmt.Sprintf("way %d", id), err)
	}
	return w, nil
}

// Relation reads a relation from the OSM API.
func (c *Client) Relation(ctx context.Context, id osm.RelationID) (*osm.Relation, error) {
	r, err := c.api.Relation(ctx, id)
	if err != nil {
		return nil, mapAPIError(fmt.Sprintf("relation %d", id), err)
	}
	return r, nil
}

// RelationsByName queries Overpass for relations whose name matches name.
func (c *Client) RelationsByName(ctx context.Context, name string) (osm.Relations, error) {
	o, err := c.overpass(ctx, fmt.Sprintf(`relation["name"~"%s"]`, quoteOverpass(name)))
	if err != nil {
		return nil, err
	}
	if len(o.Relations) == 0 {
		return nil, fmt.Errorf("relation named %q: %w", name, ErrNotFound)
	}
	return o.Relations, nil
}

// NodesByName queries Overpass for nodes whose name equals name.
func (c *Client) NodesByName(ctx context.Context, name string) (osm.Nodes, error) {
	o, err := c.overpass(ctx, fmt.Sprintf(`node["name"="%s"]`, quoteOverpass(name)))
	if err != nil {
		return nil, err
	}
	if len(o.Nodes) == 0 {
		return nil, fmt.Errorf("node named %q: %w", name, ErrNotFound)
	}
	return o.Nodes, nil
}

func (c *Client) overpass(ctx context.Context, statement string) (*osm.OSM, error) {
	query := fmt.Sprintf("[out:xml][timeout:%d];%s;out body;", int(c.timeout.Seconds())+1, statement)
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.overpassURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.overpassURL)
	}
	return decodeOSM(resp.Body)
}

func decodeOSM(r io.Reader) (*osm.OSM, error) {
	o := &osm.OSM{}
	if err := xml.NewDecoder(r).Decode(o); err != nil {
		return nil, fmt.Errorf("decode osm xml: %w", err)
	}
	return o, nil
}

func mapAPIError(what string, err error) error {
	var nf *osmapi.NotFoundError
	var gone *osmapi.GoneError
	if errors.As(err, &nf) || errors.As(err, &gone) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// quoteOverpass escapes a value for use inside an Overpass QL string literal.
func quoteOverpass(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent == "" {
		return t.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}
