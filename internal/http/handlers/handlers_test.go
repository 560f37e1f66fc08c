package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/http/middleware"
	"stickman_shake/internal/ledger"
	"stickman_shake/internal/service"
	"stickman_shake/internal/store"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router *gin.Engine
	store  *store.MemoryStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	t.Setenv("JWT_SECRET", "handlers-test-secret")
	service.InitJWT()
	middleware.InitRedisRateLimiter(nil)

	st := store.NewMemoryStore()
	sync := service.NewSynchronizer(st)
	engine := service.NewEngine(service.EngineConfig{Sync: sync, Ledger: ledger.NewDevSigner(0)})
	auth := service.NewAuthService(store.NewMemoryAccounts(), st, game.Default(), nil, "")
	h := NewHandler(auth, engine, service.NewWalletService(sync, nil, ""), nil, st)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/signin", h.SignIn)
	api.POST("/auth/telegram", h.TelegramAuth)
	api.GET("/catalog", h.GetCatalog)
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/profile/:id", h.Profile)

	me := api.Group("", middleware.JWT())
	me.GET("/me", h.Me)
	me.GET("/me/activity", h.MyActivity)
	me.GET("/leaderboard/rank", h.GetMyRank)
	me.GET("/wallet", h.GetWallet)
	me.POST("/wallet/connect", h.ConnectWallet)
	me.DELETE("/wallet", h.DisconnectWallet)
	me.POST("/upgrades/:id/buy", h.BuyUpgrade)
	me.POST("/artifacts/:id/buy", h.BuyArtifact)
	me.POST("/artifacts/:id/equip", h.EquipArtifact)
	me.POST("/cosmetics/:category/:id/buy", h.BuyCosmetic)
	me.POST("/cosmetics/:category/:id/equip", h.EquipCosmetic)
	me.POST("/transcend", h.Transcend)

	return &apiFixture{router: r, store: st}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// signUp registers email and returns the token and user id.
func (f *apiFixture) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", CredentialsRequest{Email: email, Password: "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body)
	}
	var res service.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res.Token, res.UserID
}

func (f *apiFixture) credit(t *testing.T, userID string, amount int64) {
	t.Helper()
	if _, err := f.store.Apply(context.Background(), userID, domain.Earn(amount)); err != nil {
		t.Fatalf("credit: %v", err)
	}
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) service.View {
	t.Helper()
	var v service.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, w.Body)
	}
	return v
}

func errorOf(w *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Error
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.signUp(t, "shaker@example.com")

	w := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", CredentialsRequest{Email: "shaker@example.com", Password: "secret1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/v1/auth/signup", "", CredentialsRequest{Email: "x@example.com", Password: "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("weak password: %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", CredentialsRequest{Email: "shaker@example.com", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/v1/auth/telegram", "", TelegramAuthRequest{InitData: "auth_date=1"})
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("telegram without bot token: %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/v1/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body)
	}
	v := decodeView(t, w)
	if v.Profile.UserID != userID || v.Profile.Username != "shaker" || v.Level != 1 {
		t.Fatalf("unexpected me: %+v", v)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", w.Code)
	}
}

func TestBuyUpgrade(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.signUp(t, "buyer@example.com")

	w := f.do(t, http.MethodPost, "/api/v1/upgrades/shake/buy", token, nil)
	if w.Code != http.StatusBadRequest || errorOf(w) != domain.ErrInsufficientFunds.Error() {
		t.Fatalf("expected insufficient funds, got %d %s", w.Code, w.Body)
	}

	f.credit(t, userID, 25)
	w = f.do(t, http.MethodPost, "/api/v1/upgrades/shake/buy", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("buy: %d %s", w.Code, w.Body)
	}
	v := decodeView(t, w)
	if v.Profile.Essence != 0 || v.Profile.Upgrades.Shake != 1 || v.NextCosts[game.UpgradeShake] != 29 {
		t.Fatalf("unexpected view: %+v", v)
	}

	if w := f.do(t, http.MethodPost, "/api/v1/upgrades/rocket/buy", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown upgrade: %d", w.Code)
	}
}

func TestArtifactNeedsWallet(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.signUp(t, "minter@example.com")
	f.credit(t, userID, 1000)

	w := f.do(t, http.MethodPost, "/api/v1/artifacts/artifact_of_might/buy", token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without wallet, got %d", w.Code)
	}

	wallet := "0x" + strings.Repeat("CD", 32)
	w = f.do(t, http.MethodPost, "/api/v1/wallet/connect", token, ConnectWalletRequest{Account: ledger.WalletAccount{Address: wallet}})
	if w.Code != http.StatusOK {
		t.Fatalf("connect: %d %s", w.Code, w.Body)
	}
	w = f.do(t, http.MethodGet, "/api/v1/wallet", token, nil)
	if !strings.Contains(w.Body.String(), strings.ToLower(wallet)) {
		t.Fatalf("wallet not stored: %s", w.Body)
	}

	w = f.do(t, http.MethodPost, "/api/v1/artifacts/artifact_of_might/buy", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("buy artifact: %d %s", w.Code, w.Body)
	}
	var res struct {
		View   service.View `json:"view"`
		Digest string       `json:"digest"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Digest == "" || res.View.Profile.Essence != 0 || !res.View.Profile.Owns("artifact_of_might") {
		t.Fatalf("unexpected purchase: %+v", res)
	}

	w = f.do(t, http.MethodPost, "/api/v1/artifacts/artifact_of_might/equip", token, nil)
	if w.Code != http.StatusOK || decodeView(t, w).Multipliers.PerClick != 1 {
		t.Fatalf("equip: %d %s", w.Code, w.Body)
	}

	f.credit(t, userID, 1000)
	if w := f.do(t, http.MethodPost, "/api/v1/artifacts/artifact_of_might/buy", token, nil); w.Code != http.StatusConflict {
		t.Fatalf("rebuy: %d", w.Code)
	}
}

func TestCosmetics(t *testing.T) {
	f := newAPIFixture(t)
	token, userID := f.signUp(t, "style@example.com")

	if w := f.do(t, http.MethodPost, "/api/v1/cosmetics/skin/skin_gold/equip", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("equip unowned: %d", w.Code)
	}

	f.credit(t, userID, 5000)
	if w := f.do(t, http.MethodPost, "/api/v1/cosmetics/skin/skin_gold/buy", token, nil); w.Code != http.StatusOK {
		t.Fatalf("buy: %d %s", w.Code, w.Body)
	}
	w := f.do(t, http.MethodPost, "/api/v1/cosmetics/skin/skin_gold/equip", token, nil)
	if w.Code != http.StatusOK || decodeView(t, w).Profile.EquippedSkin != "skin_gold" {
		t.Fatalf("equip: %d %s", w.Code, w.Body)
	}
}

func TestTranscendNotEligible(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.signUp(t, "early@example.com")

	f.do(t, http.MethodPost, "/api/v1/wallet/connect", token, ConnectWalletRequest{Account: ledger.WalletAccount{Address: "0x" + strings.Repeat("ab", 32)}})
	w := f.do(t, http.MethodPost, "/api/v1/transcend", token, nil)
	if w.Code != http.StatusBadRequest || errorOf(w) != domain.ErrNotEligible.Error() {
		t.Fatalf("expected not eligible, got %d %s", w.Code, w.Body)
	}
}

func TestLeaderboardAndProfile(t *testing.T) {
	f := newAPIFixture(t)
	_, a := f.signUp(t, "a@example.com")
	tokenB, b := f.signUp(t, "b@example.com")
	f.credit(t, b, 500)

	w := f.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	var board struct {
		Leaderboard []service.LeaderboardEntry `json:"leaderboard"`
		Total       int                        `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatal(err)
	}
	if board.Total != 2 || board.Leaderboard[0].UserID != b || board.Leaderboard[1].UserID != a {
		t.Fatalf("unexpected board: %+v", board)
	}

	w = f.do(t, http.MethodGet, "/api/v1/leaderboard/rank", tokenB, nil)
	if !strings.Contains(w.Body.String(), `"rank":1`) {
		t.Fatalf("unexpected rank: %s", w.Body)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/profile/"+a, "", nil); w.Code != http.StatusOK {
		t.Fatalf("profile: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/profile/missing", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing profile: %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInsufficientFunds, http.StatusBadRequest},
		{&domain.ConditionError{Field: domain.FieldArtifacts, Cond: domain.CondExcludes}, http.StatusConflict},
		{domain.ErrWalletNotConnected, http.StatusForbidden},
		{&domain.ConditionError{Field: domain.FieldUpgradeBrewery, Cond: domain.CondEquals}, http.StatusConflict},
		{fmt.Errorf("%w: rejected", domain.ErrLedgerTransactionFailed), http.StatusBadGateway},
		{fmt.Errorf("%w: timeout", domain.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{service.ErrInvalidWallet, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d; want %d", tc.err, got, tc.want)
		}
	}
}

func TestReadinessMemoryStore(t *testing.T) {
	h := NewHealthHandler(nil, nil, "dev")
	r := gin.New()
	r.GET("/readyz", h.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readiness: %d %s", w.Code, w.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["database"] != "memory" {
		t.Fatalf("expected memory database check, got %+v", resp.Checks)
	}
	if _, ok := resp.Checks["redis"]; ok {
		t.Fatal("redis check reported without a client")
	}
}
