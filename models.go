package transmission

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 9091
	DefaultEndpoint       = "/transmission/rpc"
	DefaultSessionHeader  = "X-Transmission-Session-Id"
	DefaultRequestTimeout = 30 * time.Second
)

// Client is a Transmission RPC client that owns the session token handshake.
type Client struct {
	config  Config
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	limiter *rate.Limiter

	tokenMu sync.RWMutex
	token   string
	flight  singleflight.Group
}

// Config contains connection settings and credentials. It is copied on New
// and never mutated by the client.
type Config struct {
	Host     string
	Port     int
	Endpoint string
	Username string
	Password string
	Debug    bool

	// Fields replaces DefaultFields as the field list for torrent-get calls
	// that do not name their own.
	Fields []string

	SessionHeader  string
	RequestTimeout time.Duration

	// RateLimit caps outgoing calls per second. Zero disables throttling.
	RateLimit float64
	RateBurst int

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Arguments is the arguments object of an RPC envelope.
type Arguments map[string]any

type rpcRequest struct {
	Method    string    `json:"method"`
	Arguments Arguments `json:"arguments"`
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// AddedTorrent is the torrent-added (or torrent-duplicate) object of a
// torrent-add response.
type AddedTorrent struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

// Torrent is a torrent-get entry. Keys are the requested field names.
type Torrent map[string]any

// Session is the session-get arguments object.
type Session map[string]any

// SessionStats is the session-stats arguments object.
type SessionStats struct {
	ActiveTorrentCount int   `json:"activeTorrentCount"`
	DownloadSpeed      int64 `json:"downloadSpeed"`
	PausedTorrentCount int   `json:"pausedTorrentCount"`
	TorrentCount       int   `json:"torrentCount"`
	UploadSpeed        int64 `json:"uploadSpeed"`
	CumulativeStats    Stats `json:"cumulative-stats"`
	CurrentStats       Stats `json:"current-stats"`
}

// Stats holds transfer counters for session-stats.
type Stats struct {
	UploadedBytes   int64 `json:"uploadedBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
	FilesAdded      int64 `json:"filesAdded"`
	SessionCount    int64 `json:"sessionCount"`
	SecondsActive   int64 `json:"secondsActive"`
}

// FreeSpace is the free-space arguments object.
type FreeSpace struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size-bytes"`
}

// MagnetLink holds the parts of a magnet URI.
type MagnetLink struct {
	Hash             string
	DisplayName      string
	Trackers         []string
	ExactLength      string
	ExactSource      string
	Keywords         string
	AcceptableSource string
}

// defaultFields is the torrent-get field list used when neither the call
// nor Config.Fields name one. Clients copy it; see DefaultFields.
var defaultFields = []string{
	"activityDate", "addedDate", "bandwidthPriority", "comment", "corruptEver",
	"creator", "dateCreated", "desiredAvailable", "doneDate", "downloadDir",
	"downloadedEver", "downloadLimit", "downloadLimited", "error",
	"errorString", "eta", "files", "fileStats", "hashString", "haveUnchecked",
	"haveValid", "honorsSessionLimits", "id", "isFinished", "isPrivate",
	"leftUntilDone", "magnetLink", "manualAnnounceTime", "maxConnectedPeers",
	"metadataPercentComplete", "name", "peer-limit", "peers", "peersConnected",
	"peersFrom", "peersGettingFromUs", "peersKnown", "peersSendingToUs",
	"percentDone", "pieces", "pieceCount", "pieceSize", "priorities",
	"rateDownload", "rateUpload", "recheckProgress", "seedIdleLimit",
	"seedIdleMode", "seedRatioLimit", "seedRatioMode", "sizeWhenDone",
	"startDate", "status", "trackers", "trackerStats", "totalSize",
	"torrentFile", "uploadedEver", "uploadLimit", "uploadLimited",
	"uploadRatio", "wanted", "webseeds", "webseedsSendingToUs",
}

// DefaultFields returns a copy of the built-in torrent-get field list.
func DefaultFields() []string {
	return append([]string(nil), defaultFields...)
}
