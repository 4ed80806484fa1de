package quality

import (
	"strings"
	"time"
)

// Built-in profile IDs.
const (
	ProfileAnyID     int64 = 1
	ProfileHD1080pID int64 = 2
	ProfileUltraHDID int64 = 3
)

// QualityItem represents a quality in a profile with its allowed status.
type QualityItem struct {
	Quality Quality `json:"quality"`
	Allowed bool    `json:"allowed"`
}

// Profile represents a quality profile: which tiers are acceptable, where
// upgrades stop, size bounds, and custom-format score settings.
type Profile struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Cutoff          int           `json:"cutoff"` // Quality ID at which upgrades stop
	UpgradesAllowed bool          `json:"upgradesAllowed"`
	Items           []QualityItem `json:"items"` // Ordered list of qualities

	// Size bounds in megabytes. Zero means unbounded.
	MinSizeMB int64 `json:"minSizeMB"`
	MaxSizeMB int64 `json:"maxSizeMB"`

	// MinFormatScore rejects releases whose custom-format score sum falls
	// below it. FormatScores maps custom format ID to the score it grants.
	MinFormatScore int           `json:"minFormatScore"`
	FormatScores   map[int64]int `json:"formatScores,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAllowed checks if a quality is acceptable for this profile.
func (p *Profile) IsAllowed(qualityID int) bool {
	for _, item := range p.Items {
		if item.Quality.ID == qualityID && item.Allowed {
			return true
		}
	}
	return false
}

// FormatScore returns the score this profile grants a custom format.
func (p *Profile) FormatScore(formatID int64) int {
	if p.FormatScores == nil {
		return 0
	}
	return p.FormatScores[formatID]
}

// CutoffWeight returns the weight of the cutoff quality.
func (p *Profile) CutoffWeight() int {
	if q, ok := GetQualityByID(p.Cutoff); ok {
		return q.Weight
	}
	return 0
}

// MeetsCutoff reports whether a quality already satisfies the cutoff.
func (p *Profile) MeetsCutoff(qualityID int) bool {
	q, ok := GetQualityByID(qualityID)
	return ok && q.Weight >= p.CutoffWeight()
}

// IsUpgrade checks if candidate quality is an upgrade over current quality.
// A current quality at or above the cutoff is never upgraded.
func (p *Profile) IsUpgrade(currentQualityID, candidateQualityID int) bool {
	if !p.UpgradesAllowed {
		return false
	}
	if p.MeetsCutoff(currentQualityID) {
		return false
	}
	candidate, ok := GetQualityByID(candidateQualityID)
	if !ok {
		return false
	}
	if !p.IsAllowed(candidateQualityID) {
		return false
	}
	current, _ := GetQualityByID(currentQualityID)
	return candidate.Weight > current.Weight
}

// WithinSizeBounds checks a release size in bytes against the profile bounds.
func (p *Profile) WithinSizeBounds(sizeBytes int64) bool {
	if sizeBytes <= 0 {
		return true // size unreported by the indexer
	}
	sizeMB := sizeBytes / (1024 * 1024)
	if p.MinSizeMB > 0 && sizeMB < p.MinSizeMB {
		return false
	}
	if p.MaxSizeMB > 0 && sizeMB > p.MaxSizeMB {
		return false
	}
	return true
}

// DefaultProfile returns a profile that accepts all qualities.
func DefaultProfile() Profile {
	items := make([]QualityItem, len(PredefinedQualities))
	for i, q := range PredefinedQualities {
		items[i] = QualityItem{Quality: q, Allowed: true}
	}
	return Profile{
		ID:              ProfileAnyID,
		Name:            "Any",
		Cutoff:          13, // Bluray-1080p
		UpgradesAllowed: true,
		Items:           items,
	}
}

// HD1080pProfile returns a profile targeting 1080p content.
func HD1080pProfile() Profile {
	items := make([]QualityItem, len(PredefinedQualities))
	for i, q := range PredefinedQualities {
		items[i] = QualityItem{
			Quality: q,
			Allowed: q.Resolution >= 720 && q.Resolution <= 1080,
		}
	}
	return Profile{
		ID:              ProfileHD1080pID,
		Name:            "HD-1080p",
		Cutoff:          13, // Bluray-1080p
		UpgradesAllowed: true,
		Items:           items,
	}
}

// Ultra4KProfile returns a profile targeting 4K content.
func Ultra4KProfile() Profile {
	items := make([]QualityItem, len(PredefinedQualities))
	for i, q := range PredefinedQualities {
		items[i] = QualityItem{
			Quality: q,
			Allowed: q.Resolution >= 1080,
		}
	}
	return Profile{
		ID:              ProfileUltraHDID,
		Name:            "Ultra-HD",
		Cutoff:          18, // Bluray-2160p
		UpgradesAllowed: true,
		Items:           items,
	}
}

// GetProfileByID returns a built-in profile by ID.
func GetProfileByID(id int64) (Profile, bool) {
	switch id {
	case ProfileAnyID:
		return DefaultProfile(), true
	case ProfileHD1080pID:
		return HD1080pProfile(), true
	case ProfileUltraHDID:
		return Ultra4KProfile(), true
	}
	return Profile{}, false
}

// GetProfileByName returns a built-in profile by name, case-insensitively.
func GetProfileByName(name string) (Profile, bool) {
	for _, id := range []int64{ProfileAnyID, ProfileHD1080pID, ProfileUltraHDID} {
		profile, _ := GetProfileByID(id)
		if strings.EqualFold(profile.Name, name) {
			return profile, true
		}
	}
	return Profile{}, false
}
