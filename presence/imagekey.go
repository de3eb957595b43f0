package presence

import "strings"

// DefaultImageKey is shown for activities without a dedicated image. It is
// also the small image on every presence.
const DefaultImageKey = "gymsync_logo"

// imageKeys is checked in order; the first keyword contained in the activity
// wins.
var imageKeys = []struct {
	keyword string
	key     string
}{
	{"running", "running"},
	{"cycling", "cycling"},
	{"gym", "gym"},
}

// ImageKey maps an activity label to a presentation image key using a
// case-insensitive substring match. Empty or unmatched labels get
// DefaultImageKey.
func ImageKey(activity string) string {
	if activity == "" {
		return DefaultImageKey
	}
	lower := strings.ToLower(activity)
	for _, k := range imageKeys {
		if strings.Contains(lower, k.keyword) {
			return k.key
		}
	}
	return DefaultImageKey
}
