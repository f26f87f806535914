package transmission

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
)

// RecentlyActive selects torrents that changed recently; it is passed as ids
// without being wrapped in a list.
const RecentlyActive = "recently-active"

// normalizeIDs turns a single id or a list of ids into the wire form.
// nil means all torrents and yields nil.
func normalizeIDs(ids any) (any, error) {
	switch v := ids.(type) {
	case nil:
		return nil, nil
	case string:
		if v == RecentlyActive {
			return v, nil
		}
		return []any{v}, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return []any{v}, nil
	case []int:
		out := make([]any, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out, nil
	case []int64:
		out := make([]any, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out, nil
	case []any:
		return v, nil
	default:
		return nil, errors.Errorf("unsupported torrent id type %T", ids)
	}
}

// Add adds a torrent by URL or magnet link and returns the torrent-added
// entry. options are merged into the torrent-add arguments; filename wins.
func (c *Client) Add(ctx context.Context, url string, options Arguments) (*AddedTorrent, error) {
	if url == "" {
		return nil, errors.New("torrent url is empty")
	}

	if IsMagnetLink(url) {
		magnet, err := ParseMagnetLink(url)
		if err != nil {
			return nil, errors.Wrap(err, "failed to add torrent")
		}
		c.logger.Debug().Str("hash", magnet.Hash).Str("name", magnet.DisplayName).Msg("adding magnet")
	}

	return c.addTorrent(ctx, "filename", url, options)
}

// AddMetainfo adds a torrent from the raw contents of a .torrent file.
func (c *Client) AddMetainfo(ctx context.Context, metainfo []byte, options Arguments) (*AddedTorrent, error) {
	if len(metainfo) == 0 {
		return nil, errors.New("torrent metainfo is empty")
	}
	return c.addTorrent(ctx, "metainfo", base64.StdEncoding.EncodeToString(metainfo), options)
}

func (c *Client) addTorrent(ctx context.Context, key, value string, options Arguments) (*AddedTorrent, error) {
	args := make(Arguments, len(options)+1)
	for k, v := range options {
		args[k] = v
	}
	args[key] = value

	var response struct {
		Added     *AddedTorrent `json:"torrent-added"`
		Duplicate *AddedTorrent `json:"torrent-duplicate"`
	}
	if err := c.CallInto(ctx, "torrent-add", args, &response); err != nil {
		return nil, errors.Wrap(err, "failed to add torrent")
	}

	if response.Duplicate != nil {
		return nil, errors.Wrap(&DuplicateTorrentError{Torrent: response.Duplicate}, "failed to add torrent")
	}
	if response.Added == nil {
		return nil, &ProtocolError{Message: "torrent-add response carries no torrent-added entry"}
	}

	return response.Added, nil
}

// Get returns the torrents selected by ids (a single id, a list, or nil for
// all). Empty fields fall back to the client's configured field list.
func (c *Client) Get(ctx context.Context, ids any, fields []string) ([]Torrent, error) {
	wireIDs, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		fields = c.config.Fields
	}

	args := Arguments{"fields": fields}
	if wireIDs != nil {
		args["ids"] = wireIDs
	}

	var response struct {
		Torrents []Torrent `json:"torrents"`
	}
	if err := c.CallInto(ctx, "torrent-get", args, &response); err != nil {
		return nil, errors.Wrap(err, "failed to get torrents")
	}

	return response.Torrents, nil
}

// Only returns the single torrent with the given id, or ErrTorrentNotFound.
func (c *Client) Only(ctx context.Context, id any, fields []string) (Torrent, error) {
	torrents, err := c.Get(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	if len(torrents) == 0 {
		return nil, errors.Wrapf(ErrTorrentNotFound, "id %v", id)
	}

	return torrents[0], nil
}

// Delete removes torrents and, when deleteData is set, their local data.
func (c *Client) Delete(ctx context.Context, ids any, deleteData bool) error {
	wireIDs, err := normalizeIDs(ids)
	if err != nil {
		return err
	}
	if wireIDs == nil {
		// an absent ids argument would remove every torrent
		return errors.New("torrent-remove requires ids")
	}

	_, err = c.Call(ctx, "torrent-remove", Arguments{
		"ids":               wireIDs,
		"delete-local-data": deleteData,
	})
	if err != nil {
		return errors.Wrap(err, "failed to remove torrents")
	}

	return nil
}

// Reusable start/stop/verify/reannounce helper
func (c *Client) torrentAction(ctx context.Context, method string, ids any) error {
	wireIDs, err := normalizeIDs(ids)
	if err != nil {
		return err
	}

	args := Arguments{}
	if wireIDs != nil {
		args["ids"] = wireIDs
	}

	if _, err := c.Call(ctx, method, args); err != nil {
		return errors.Wrapf(err, "failed to %s", method)
	}

	return nil
}

// Start queues torrents for download or seeding.
func (c *Client) Start(ctx context.Context, ids any) error {
	return c.torrentAction(ctx, "torrent-start", ids)
}

// StartNow starts torrents bypassing the download queue.
func (c *Client) StartNow(ctx context.Context, ids any) error {
	return c.torrentAction(ctx, "torrent-start-now", ids)
}

// Stop pauses torrents.
func (c *Client) Stop(ctx context.Context, ids any) error {
	return c.torrentAction(ctx, "torrent-stop", ids)
}

// Verify rechecks local data against the piece hashes.
func (c *Client) Verify(ctx context.Context, ids any) error {
	return c.torrentAction(ctx, "torrent-verify", ids)
}

// Reannounce asks the trackers for more peers.
func (c *Client) Reannounce(ctx context.Context, ids any) error {
	return c.torrentAction(ctx, "torrent-reannounce", ids)
}

// GetSession returns the session object. With keys, only those keys are
// returned; keys the daemon does not report map to nil.
func (c *Client) GetSession(ctx context.Context, keys ...string) (Session, error) {
	var session Session
	if err := c.CallInto(ctx, "session-get", nil, &session); err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}

	if len(keys) == 0 {
		return session, nil
	}

	projection := make(Session, len(keys))
	for _, key := range keys {
		projection[key] = session[key]
	}

	return projection, nil
}

// GetSessionValue returns one session value, or nil if the daemon does not
// report it.
func (c *Client) GetSessionValue(ctx context.Context, key string) (any, error) {
	session, err := c.GetSession(ctx, key)
	if err != nil {
		return nil, err
	}
	return session[key], nil
}

// SetSession changes session settings.
func (c *Client) SetSession(ctx context.Context, args Arguments) error {
	if len(args) == 0 {
		return errors.New("session-set requires at least one argument")
	}
	if _, err := c.Call(ctx, "session-set", args); err != nil {
		return errors.Wrap(err, "failed to set session")
	}
	return nil
}

// SessionStats returns transfer counters for the current and all sessions.
func (c *Client) SessionStats(ctx context.Context) (*SessionStats, error) {
	var stats SessionStats
	if err := c.CallInto(ctx, "session-stats", nil, &stats); err != nil {
		return nil, errors.Wrap(err, "failed to get session stats")
	}
	return &stats, nil
}

// FreeSpace reports the free space available at path on the daemon host.
func (c *Client) FreeSpace(ctx context.Context, path string) (*FreeSpace, error) {
	var space FreeSpace
	if err := c.CallInto(ctx, "free-space", Arguments{"path": path}, &space); err != nil {
		return nil, errors.Wrapf(err, "failed to get free space for %s", path)
	}
	return &space, nil
}
