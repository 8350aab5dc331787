package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewearn/config"
	"viewearn/internal/auth"
	"viewearn/internal/metrics"
	"viewearn/internal/models"
)

func TestHub_PublishWalletReachesEveryConnection(t *testing.T) {
	h := NewHub()
	a1, a2, b := NewClient(1), NewClient(1), NewClient(2)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)
	assert.Equal(t, 3, h.ClientCount())

	h.PublishWallet(models.Wallet{UserID: 1, Coins: 50})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.Send:
			var got walletMessage
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, "wallet", got.Type)
			assert.Equal(t, int64(50), got.Wallet.Coins)
		default:
			t.Fatal("expected a wallet message")
		}
	}
	assert.Empty(t, b.Send)
}

func TestHub_CloseUnregisters(t *testing.T) {
	metrics.WalletSubscribers.Set(0)
	h := NewHub()
	c := NewClient(1)
	h.Register(c)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WalletSubscribers))

	c.Close()
	c.Close()
	assert.Zero(t, h.ClientCount())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.WalletSubscribers))

	// publishing to a closed client must not panic
	h.PublishWallet(models.Wallet{UserID: 1})
	c.trySend([]byte("x"))
}

type staticWallets struct{}

func (staticWallets) Wallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	return &models.Wallet{UserID: userID, Balance: 120}, nil
}

func TestUpgradeWalletWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute, Issuer: "viewearn"}
	hub := NewHub()
	router := gin.New()
	router.GET("/ws/wallet", UpgradeWalletWS(cfg, hub, staticWallets{}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/wallet"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad", nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, 9, "", "USER")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first walletMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, int64(120), first.Wallet.Balance)

	hub.PublishWallet(models.Wallet{UserID: 9, Balance: 140})
	var next walletMessage
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, int64(140), next.Wallet.Balance)
}

func TestUpgradeWalletWS_SnapshotOnlyToNewConnection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute, Issuer: "viewearn"}
	hub := NewHub()
	existing := NewClient(4)
	hub.Register(existing)

	router := gin.New()
	router.GET("/ws/wallet", UpgradeWalletWS(cfg, hub, staticWallets{}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	tok, err := auth.GenerateAccessToken(cfg, 4, "", "USER")
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/wallet", header)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first walletMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint(4), first.Wallet.UserID)
	assert.Empty(t, existing.Send)
	assert.Equal(t, 2, hub.ClientCount())
}
