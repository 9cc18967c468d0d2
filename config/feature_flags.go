package config

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Predefined feature flag names.
const (
	FeatureLiveFeed       = "live.simulated_feed"  // client-side simulated live activity
	FeatureLiveWebsocket  = "live.websocket"       // /api/live and the client subscriber
	FeatureReplySimulator = "chat.reply_simulator" // canned mentor replies
	FeatureMetrics        = "ops.metrics"          // /metrics endpoint
)

// Feature is one toggle. Rollout (0-100) is the share of users who get it.
type Feature struct {
	Name        string
	Description string
	Rollout     int
}

// FeatureFlags holds the toggles loaded at startup. It is read-only after
// loading and safe for concurrent use.
type FeatureFlags struct {
	features map[string]Feature
}

// LoadFeatureFlags builds the default flags and applies FEATURE_* overrides
// visible to v.
func LoadFeatureFlags(v *viper.Viper) *FeatureFlags {
	ff := NewFeatureFlags()
	if v != nil {
		ff.loadFrom(v)
	}
	return ff
}

// NewFeatureFlags returns every flag fully rolled out.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]Feature)}
	for name, desc := range map[string]string{
		FeatureLiveFeed:       "Publish simulated mentor and session activity",
		FeatureLiveWebsocket:  "Stream server live events over websocket",
		FeatureReplySimulator: "Answer chat messages with canned mentor replies",
		FeatureMetrics:        "Expose Prometheus metrics",
	} {
		ff.features[name] = Feature{Name: name, Description: desc, Rollout: 100}
	}
	return ff
}

// loadFrom applies overrides.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CHAT_REPLY_SIMULATOR=25
func (ff *FeatureFlags) loadFrom(v *viper.Viper) {
	for name, feature := range ff.features {
		val := strings.TrimSpace(v.GetString(featureNameToEnvKey(name)))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Rollout = 0
			if b {
				feature.Rollout = 100
			}
		} else if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Rollout = p
		}
		ff.features[name] = feature
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "chat.reply_simulator" -> "FEATURE_CHAT_REPLY_SIMULATOR"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// Enabled reports whether any user can get the feature. Process-wide
// switches (metrics, the websocket endpoint) use this.
func (ff *FeatureFlags) Enabled(name string) bool {
	f, ok := ff.features[name]
	return ok && f.Rollout > 0
}

// EnabledFor reports whether userID falls inside the feature's rollout.
// Users keep their bucket across restarts.
func (ff *FeatureFlags) EnabledFor(name, userID string) bool {
	f, ok := ff.features[name]
	switch {
	case !ok || f.Rollout <= 0:
		return false
	case f.Rollout >= 100:
		return true
	default:
		return rolloutBucket(name, userID) < f.Rollout
	}
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}
