package subsonic

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// ClientName is sent as the "c" parameter on every request.
	ClientName = "sonicbox"
	// APIVersion is the protocol version sent as the "v" parameter.
	APIVersion = "1.16.1"
	// DefaultArtworkSize is the cover art edge length used when none is given.
	DefaultArtworkSize = 300

	placeholderArtworkFormat = "https://placehold.co/%dx%d?text=No+Art"
)

// Credentials identifies a user on a server.
// Values are immutable; replacing them invalidates every URL built from the
// previous value because the URLs embed the auth parameters.
type Credentials struct {
	URL      string // Server base URL, e.g. https://music.example.com
	Username string
	Password string // Optional
}

// BaseURL returns the server URL without trailing slashes.
func (c Credentials) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.URL), "/")
}

// HasPassword reports whether a password is set.
func (c Credentials) HasPassword() bool {
	return c.Password != ""
}

// AuthQuery builds the authentication query string.
// The password is hex-encoded with the "enc:" prefix. This is the protocol's
// legacy obfuscation, not encryption.
func (c Credentials) AuthQuery() string {
	params := url.Values{}
	params.Set("u", c.Username)
	params.Set("c", ClientName)
	params.Set("v", APIVersion)
	params.Set("f", "json")
	if c.HasPassword() {
		params.Set("p", "enc:"+hex.EncodeToString([]byte(c.Password)))
	}
	return params.Encode()
}

// StreamURL returns the authenticated stream URL for a track.
// It performs no I/O; identical inputs always yield identical URLs.
func (c Credentials) StreamURL(trackID string) string {
	params := url.Values{}
	params.Set("id", trackID)
	return c.endpointURL("stream", params)
}

// ArtworkURL returns the cover art URL for an item, or a placeholder when
// itemID is empty.
func (c Credentials) ArtworkURL(itemID string, size int) string {
	if size <= 0 {
		size = DefaultArtworkSize
	}
	if itemID == "" {
		return fmt.Sprintf(placeholderArtworkFormat, size, size)
	}
	return c.endpointURL("getCoverArt", nil) + "&id=" + url.QueryEscape(itemID) + "&size=" + strconv.Itoa(size)
}

// endpointURL joins base URL, endpoint, auth query and extra parameters.
func (c Credentials) endpointURL(endpoint string, extra url.Values) string {
	u := c.BaseURL() + "/rest/" + endpoint + ".view?" + c.AuthQuery()
	if len(extra) > 0 {
		u += "&" + extra.Encode()
	}
	return u
}
