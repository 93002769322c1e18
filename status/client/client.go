package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	fspath "path"
	"strings"
	"time"

	"github.com/andydunstall/epidemic/pkg/gossip"
	"github.com/andydunstall/epidemic/pkg/kv"
	"github.com/andydunstall/epidemic/pkg/status"
)

var (
	ErrNotFound = errors.New("not found")
)

// Client queries a node's admin API.
type Client struct {
	httpClient *http.Client

	url *url.URL
}

func NewClient(url *url.URL) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 15,
		},
		url: url,
	}
}

// GossipNodes returns the nodes known by the server, with the server's own
// node first.
func (c *Client) GossipNodes() ([]gossip.Node, error) {
	var nodes []gossip.Node
	if err := c.get("/status/gossip/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) GossipEntries() ([]gossip.Update[kv.Value], error) {
	var entries []gossip.Update[kv.Value]
	if err := c.get("/status/gossip/entries", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GossipEntry(key string) (gossip.Update[kv.Value], error) {
	var entry gossip.Update[kv.Value]
	if err := c.get("/status/gossip/entries/"+key, &entry); err != nil {
		return gossip.Update[kv.Value]{}, err
	}
	return entry, nil
}

// KVGet returns the value of the key, or ErrNotFound if the server has no
// entry for the key.
func (c *Client) KVGet(key string) (kv.Value, error) {
	var v kv.Value
	if err := c.get("/kv/"+key, &v); err != nil {
		return kv.Value{}, err
	}
	return v, nil
}

// KVPut writes the value to the server and returns the stored value,
// including the assigned revision.
func (c *Client) KVPut(key string, data string) (kv.Value, error) {
	r, err := c.request(http.MethodPut, "/kv/"+key, strings.NewReader(data))
	if err != nil {
		return kv.Value{}, err
	}
	defer r.Close()

	var v kv.Value
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return kv.Value{}, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) get(path string, v any) error {
	r, err := c.request(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) request(method string, path string, body io.Reader) (io.ReadCloser, error) {
	url := new(url.URL)
	*url = *c.url

	url.Path = fspath.Join(url.Path, path)

	req, err := http.NewRequest(method, url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		return nil, fmt.Errorf("request: %w", status.ErrorFromResponse(resp))
	}

	return resp.Body, nil
}
