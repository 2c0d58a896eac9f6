package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hep-clue/clue/pkg/api/rest/middleware"
	"github.com/hep-clue/clue/pkg/cache"
	"github.com/hep-clue/clue/pkg/layer"
	"github.com/hep-clue/clue/pkg/observability"
)

// Handler serves the clustering HTTP API on top of a layer.Registry: one
// *clue.Engine per named detector layer, an optional batch-result cache and
// the Prometheus metrics/logger pair every request is recorded against.
type Handler struct {
	registry  *layer.Registry
	cache     *cache.LRUCache // nil when caching is disabled
	metrics   *observability.Metrics
	logger    *observability.Logger
	startedAt time.Time
	version   string
}

// NewHandler builds a Handler over registry. cache may be nil to disable
// batch-result caching.
func NewHandler(registry *layer.Registry, batchCache *cache.LRUCache, metrics *observability.Metrics, logger *observability.Logger, version string) *Handler {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}
	return &Handler{
		registry:  registry,
		cache:     batchCache,
		metrics:   metrics,
		logger:    logger,
		startedAt: time.Now(),
		version:   version,
	}
}

// PointPayload is the wire representation of one input point.
type PointPayload struct {
	Coords   []float32 `json:"coords"`
	AddCoord float32   `json:"add_coord,omitempty"`
	Weight   float32   `json:"weight"`
}

// ClusterRequest is the POST /v1/layers/{name}/cluster request body.
type ClusterRequest struct {
	Points []PointPayload `json:"points"`
}

// ClusterResponse is the POST /v1/layers/{name}/cluster response body.
type ClusterResponse struct {
	ClusterIndex []int   `json:"cluster_index"`
	IsSeed       []bool  `json:"is_seed"`
	NumClusters  int     `json:"num_clusters"`
	NumOutliers  int     `json:"num_outliers"`
	Cached       bool    `json:"cached"`
	DurationMs   float64 `json:"duration_ms"`
}

// Cluster handles POST /v1/layers/{name}/cluster: decodes a batch of
// points, runs it through the named layer's engine (or returns a cached
// result for an identical batch) and returns the per-point labeling.
func (h *Handler) Cluster(w http.ResponseWriter, r *http.Request, layerName string) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok && !claims.CanAccessLayer(layerName) {
		writeError(w, "token does not grant access to this layer", http.StatusForbidden)
		return
	}

	var req ClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Points) == 0 {
		writeError(w, "points must not be empty", http.StatusBadRequest)
		return
	}

	coords := make([][]float32, len(req.Points))
	addCoord := make([]float32, len(req.Points))
	weight := make([]float32, len(req.Points))
	for i, p := range req.Points {
		coords[i] = p.Coords
		addCoord[i] = p.AddCoord
		weight[i] = p.Weight
	}

	start := time.Now()
	var key cache.BatchKey
	if h.cache != nil {
		key = cache.NewBatchKey(layerName, coords, addCoord, weight)
		if cached, ok := h.cache.Get(key); ok {
			if h.metrics != nil {
				h.metrics.RecordCacheHit()
			}
			writeJSON(w, ClusterResponse{
				ClusterIndex: cached.ClusterIndex,
				IsSeed:       cached.IsSeed,
				NumClusters:  cached.NumClusters,
				NumOutliers:  cached.NumOutliers,
				Cached:       true,
				DurationMs:   time.Since(start).Seconds() * 1000,
			}, http.StatusOK)
			return
		}
		if h.metrics != nil {
			h.metrics.RecordCacheMiss()
		}
	}

	engine, err := h.registry.Engine(layerName)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	clusterIndex, isSeed, clusters, err := h.registry.RunBatch(layerName, coords, addCoord, weight)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	numClusters := len(clusters)
	numOutliers := 0
	if outliers, hasOutliers := clusters[-1]; hasOutliers {
		numClusters--
		numOutliers = len(outliers)
	}

	sat := engine.Saturations()
	if h.metrics != nil {
		for _, st := range engine.StageTimings() {
			h.metrics.RecordStage(st.Stage, st.Duration)
		}
		h.metrics.RecordSaturation("tiles", sat.Tiles)
		h.metrics.RecordSaturation("seeds", sat.Seeds)
		h.metrics.RecordSaturation("followers", sat.Followers)
		h.metrics.RecordSaturation("dfs_stack", sat.DFSStack)
		h.metrics.RecordLayerBatch(layerName, len(req.Points), h.registry.QuotaFraction(layerName, len(req.Points)))
	}
	if sat.Tiles > 0 || sat.Seeds > 0 || sat.Followers > 0 || sat.DFSStack > 0 {
		h.logger.Warn("bounded container saturated", map[string]interface{}{
			"layer": layerName, "tiles": sat.Tiles, "seeds": sat.Seeds,
			"followers": sat.Followers, "dfs_stack": sat.DFSStack,
		})
	}

	result := cache.Result{
		ClusterIndex: clusterIndex,
		IsSeed:       isSeed,
		NumClusters:  numClusters,
		NumOutliers:  numOutliers,
	}
	if h.cache != nil {
		h.cache.Put(key, result)
		if h.metrics != nil {
			h.metrics.UpdateCacheSize(h.cache.Size())
		}
	}

	duration := time.Since(start)
	if h.metrics != nil {
		h.metrics.RecordBatch(len(req.Points), duration, countSeeds(isSeed), numClusters, numOutliers)
	}
	h.logger.LogStage("cluster:"+layerName, duration, len(req.Points))

	writeJSON(w, ClusterResponse{
		ClusterIndex: result.ClusterIndex,
		IsSeed:       result.IsSeed,
		NumClusters:  result.NumClusters,
		NumOutliers:  result.NumOutliers,
		Cached:       false,
		DurationMs:   duration.Seconds() * 1000,
	}, http.StatusOK)
}

func countSeeds(isSeed []bool) int {
	n := 0
	for _, s := range isSeed {
		if s {
			n++
		}
	}
	return n
}

// HealthResponse is the GET /v1/health response body.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}, http.StatusOK)
}

// ListLayers handles GET /v1/layers.
func (h *Handler) ListLayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"layers": h.registry.Names()}, http.StatusOK)
}

// LayerStatsResponse is the GET /v1/layers/{name}/stats response body.
type LayerStatsResponse struct {
	Name            string `json:"name"`
	BatchesRun      int64  `json:"batches_run"`
	PointsProcessed int64  `json:"points_processed"`
	LastBatchAt     string `json:"last_batch_at,omitempty"`
}

// LayerStats handles GET /v1/layers/{name}/stats.
func (h *Handler) LayerStats(w http.ResponseWriter, r *http.Request, layerName string) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	usage, err := h.registry.Usage(layerName)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	resp := LayerStatsResponse{
		Name:            layerName,
		BatchesRun:      usage.BatchesRun,
		PointsProcessed: usage.PointsProcessed,
	}
	if !usage.LastBatchAt.IsZero() {
		resp.LastBatchAt = usage.LastBatchAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, resp, http.StatusOK)
}

// CacheStatsResponse is the GET /v1/cache/stats response body.
type CacheStatsResponse struct {
	Enabled bool    `json:"enabled"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// CacheStats handles GET /v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.cache == nil {
		writeJSON(w, CacheStatsResponse{Enabled: false}, http.StatusOK)
		return
	}
	stats := h.cache.Stats()
	writeJSON(w, CacheStatsResponse{
		Enabled: true, Hits: stats.Hits, Misses: stats.Misses,
		Size: stats.Size, HitRate: stats.HitRate,
	}, http.StatusOK)
}

// CacheClear handles POST /v1/cache/clear.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.cache != nil {
		h.cache.Clear()
	}
	writeJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ParseIntQuery parses an integer query parameter, returning defaultValue
// if the parameter is absent or malformed.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// layerNameFromPath extracts the {name} segment from a path shaped like
// /v1/layers/{name}/<suffix>, returning the layer name and the suffix.
func layerNameFromPath(path, prefix string) (name, suffix string, ok bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}
