package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatnet/serverbrowser/internal/proto"
)

func testListing() proto.DirectoryListing {
	return proto.DirectoryListing{
		ServerCode: "ABC123",
		GameName:   "Hosty's game",
		OwnerID:    "H",
		OwnerName:  "Hosty",
		ServerType: proto.ServerTypeVanillaDedicated,
		Players:    []proto.ListingPlayer{{UserID: "H", UserName: "Hosty", IsHost: true}},
	}
}

func TestAnnounceSuccess(t *testing.T) {
	var got proto.DirectoryListing
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/announce", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(proto.AnnounceResponse{Success: true, Key: "4fz9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	resp, err := c.Announce(context.Background(), testListing())

	require.NoError(t, err)
	assert.Equal(t, "4fz9", resp.Key)
	assert.Equal(t, "ABC123", got.ServerCode)
	assert.Equal(t, "Hosty", got.OwnerName)
}

func TestAnnounceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(proto.AnnounceResponse{Success: false, Message: "outdated mod version"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Announce(context.Background(), testListing())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outdated mod version")
}

func TestAnnounceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Announce(context.Background(), testListing())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestUnAnnounce(t *testing.T) {
	removed := true
	var got proto.UnannounceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/unannounce", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(proto.UnannounceResponse{Success: true, Removed: removed})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)

	ok, err := c.UnAnnounce(context.Background(), proto.UnannounceRequest{ServerCode: "ABC123", OwnerID: "H"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ABC123", got.ServerCode)

	// The directory may report success without confirming removal; the
	// caller must treat that as "still listed".
	removed = false
	ok, err = c.UnAnnounce(context.Background(), proto.UnannounceRequest{ServerCode: "ABC123", OwnerID: "H"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBrowse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/browse", r.URL.Path)
		require.Equal(t, "20", r.URL.Query().Get("offset"))
		require.Equal(t, "beat saber", r.URL.Query().Get("query"))
		json.NewEncoder(w).Encode(proto.BrowseResult{
			Count:   1,
			Offset:  20,
			Lobbies: []proto.DirectoryListing{testListing()},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	page, err := c.Browse(context.Background(), 20, "beat saber")

	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Lobbies, 1)
	assert.Equal(t, "ABC123", page.Lobbies[0].ServerCode)
}

func TestBrowseOmitsEmptyQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["query"]
		assert.False(t, present)
		json.NewEncoder(w).Encode(proto.BrowseResult{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Browse(context.Background(), 0, "")
	require.NoError(t, err)
}

func TestNewClientNormalizesBaseURL(t *testing.T) {
	c := NewClient("https://bssb.app/", time.Second)
	assert.Equal(t, "https://bssb.app", c.BaseURL)
}
