package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tasteboard/backend/internal/boards"
	"github.com/tasteboard/backend/internal/cache"
	"github.com/tasteboard/backend/internal/llm"
	"github.com/tasteboard/backend/internal/tasks"
	"github.com/tasteboard/backend/internal/users"
	"github.com/tasteboard/backend/internal/youtube"
)

const userIDContextKey = "tasteboard_user_id"

const (
	googleTokenKeyPrefix   = "google_token:"
	oauthStateKeyPrefix    = "oauth_state:"
	subscriptionsKeyPrefix = "subscriptions:"
	sharedLinkKeyPrefix    = "shared_link:"

	googleTokenTTL   = time.Hour
	oauthStateTTL    = 10 * time.Minute
	subscriptionsTTL = time.Hour
	sharedLinkTTL    = time.Hour
)

var (
	errMissingAccountService = errors.New("account service dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingBoardService   = errors.New("board service dependency required")
	errMissingOrchestrator   = errors.New("board orchestrator dependency required")
	errMissingDispatcher     = errors.New("task dispatcher dependency required")
	errMissingCacheStore     = errors.New("cache store dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// AccessTokenManager validates the bearer tokens protecting the API.
type AccessTokenManager interface {
	ValidateAccessToken(token string) (int64, error)
}

// GoogleConnector drives the Google consent flow for subscription access.
type GoogleConnector interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// SubscriptionLister reads the connected account's channel subscriptions.
type SubscriptionLister interface {
	Subscriptions(ctx context.Context, accessToken string) ([]youtube.Subscription, error)
}

// BoardRegenerator exposes the per-field regeneration operations.
type BoardRegenerator interface {
	RegenerateKeywords(ctx context.Context, externalID string, ownerID int64, category string) ([]string, error)
	RegenerateImage(ctx context.Context, externalID string, ownerID int64) (string, error)
}

// KeywordComparator scores the overlap between two keyword profiles.
type KeywordComparator interface {
	Compare(ctx context.Context, first, second map[string][]string) (llm.Comparison, error)
}

// Dependencies lists everything the HTTP surface needs.
type Dependencies struct {
	Accounts      *users.Service
	TokenManager  AccessTokenManager
	Google        GoogleConnector
	Subscriptions SubscriptionLister
	Boards        *boards.Service
	Regenerator   BoardRegenerator
	Comparator    KeywordComparator
	Dispatcher    tasks.Dispatcher
	Cache         cache.Store
	IDProvider    boards.IDProvider
	ShareBaseURL  string
	Logger        *zap.Logger
}

// NewHTTPHandler assembles the router with CORS and bearer-token middleware.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Boards == nil {
		return nil, errMissingBoardService
	}
	if deps.Regenerator == nil {
		return nil, errMissingOrchestrator
	}
	if deps.Dispatcher == nil {
		return nil, errMissingDispatcher
	}
	if deps.Cache == nil {
		return nil, errMissingCacheStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idProvider := deps.IDProvider
	if idProvider == nil {
		idProvider = boards.NewUUIDProvider()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		accounts:      deps.Accounts,
		tokens:        deps.TokenManager,
		google:        deps.Google,
		subscriptions: deps.Subscriptions,
		boards:        deps.Boards,
		regenerator:   deps.Regenerator,
		comparator:    deps.Comparator,
		dispatcher:    deps.Dispatcher,
		cache:         deps.Cache,
		idProvider:    idProvider,
		shareBaseURL:  strings.TrimRight(deps.ShareBaseURL, "/"),
		logger:        logger,
	}

	router.POST("/auth/signup", handler.handleSignup)
	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/refresh", handler.handleRefresh)
	router.GET("/auth/google/callback", handler.handleGoogleCallback)
	router.GET("/shared/:share_id", handler.handleSharedBoard)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/auth/google/login", handler.handleGoogleLogin)
	protected.GET("/subscriptions", handler.handleSubscriptions)
	protected.POST("/boards", handler.handleCreateBoard)
	protected.GET("/boards", handler.handleListBoards)
	protected.GET("/boards/:external_id", handler.handleGetBoard)
	protected.PUT("/boards/:external_id/keywords", handler.handleRegenerateKeywords)
	protected.PUT("/boards/:external_id/image", handler.handleRegenerateImage)
	protected.POST("/boards/:external_id/share", handler.handleShareBoard)
	protected.POST("/boards/compare", handler.handleCompareBoards)

	return router, nil
}

type httpHandler struct {
	accounts      *users.Service
	tokens        AccessTokenManager
	google        GoogleConnector
	subscriptions SubscriptionLister
	boards        *boards.Service
	regenerator   BoardRegenerator
	comparator    KeywordComparator
	dispatcher    tasks.Dispatcher
	cache         cache.Store
	idProvider    boards.IDProvider
	shareBaseURL  string
	logger        *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	userID, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

func (h *httpHandler) requestUserID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok && userID > 0
}

func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
