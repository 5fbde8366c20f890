package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tasteboard/backend/internal/boards"
	"github.com/tasteboard/backend/internal/tasks"
	"github.com/tasteboard/backend/internal/youtube"
)

const (
	boardStatusPending  = "pending"
	boardStatusComplete = "complete"
)

type boardResponsePayload struct {
	BoardID       string              `json:"board_id"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	ImageURL      string              `json:"image_url,omitempty"`
	Categories    []string            `json:"categories,omitempty"`
	CategoryRatio []int               `json:"category_ratio,omitempty"`
	Keywords      map[string][]string `json:"keywords,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func boardPayload(board boards.Board) (boardResponsePayload, error) {
	payload := boardResponsePayload{
		BoardID:   board.ExternalID,
		Name:      board.Name,
		Status:    boardStatusPending,
		CreatedAt: board.CreatedAt,
	}
	if !board.Complete() {
		return payload, nil
	}

	categories, err := board.Categories()
	if err != nil {
		return boardResponsePayload{}, err
	}
	ratio, err := board.CategoryRatio()
	if err != nil {
		return boardResponsePayload{}, err
	}
	keywords, err := board.Keywords()
	if err != nil {
		return boardResponsePayload{}, err
	}

	payload.Status = boardStatusComplete
	payload.ImageURL = board.ImageURL
	payload.Categories = categories
	payload.CategoryRatio = ratio
	payload.Keywords = keywords
	return payload, nil
}

func (h *httpHandler) respondBoard(c *gin.Context, status int, board boards.Board) {
	payload, err := boardPayload(board)
	if err != nil {
		h.logger.Error("board payload encoding failed",
			zap.String("board_id", board.ExternalID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board_encoding_failed"})
		return
	}
	c.JSON(status, payload)
}

func (h *httpHandler) respondBoardError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, boards.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "board_not_found"})
	case errors.Is(err, boards.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, boards.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "category_not_found"})
	case errors.Is(err, boards.ErrNoData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no_source_videos"})
	case errors.Is(err, boards.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, boards.ErrNotGenerated):
		c.JSON(http.StatusConflict, gin.H{"error": "board_not_generated"})
	default:
		h.logger.Error(operation+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": operation + "_failed"})
	}
}

func (h *httpHandler) handleSubscriptions(c *gin.Context) {
	if h.subscriptions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "youtube_not_configured"})
		return
	}
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cacheKey := subscriptionsKeyPrefix + formatUserID(userID)
	if cached, hit, err := h.cache.Get(c.Request.Context(), cacheKey); err == nil && hit {
		var subscriptions []youtube.Subscription
		if decodeErr := json.Unmarshal(cached, &subscriptions); decodeErr == nil {
			c.JSON(http.StatusOK, gin.H{"subscriptions": subscriptions})
			return
		}
	}

	tokenKey := googleTokenKeyPrefix + formatUserID(userID)
	token, hit, err := h.cache.Get(c.Request.Context(), tokenKey)
	if err != nil || !hit {
		c.JSON(http.StatusConflict, gin.H{"error": "youtube_not_connected"})
		return
	}

	subscriptions, err := h.subscriptions.Subscriptions(c.Request.Context(), string(token))
	if err != nil {
		h.logger.Warn("subscription listing failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "subscriptions_failed"})
		return
	}

	if encoded, encodeErr := json.Marshal(subscriptions); encodeErr == nil {
		_ = h.cache.Set(c.Request.Context(), cacheKey, encoded, subscriptionsTTL)
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subscriptions})
}

type createBoardRequestPayload struct {
	Name       string   `json:"name"`
	ChannelIDs []string `json:"channel_ids"`
	RequestID  string   `json:"request_id"`
}

func (h *httpHandler) handleCreateBoard(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request createBoardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.ChannelIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	board, err := h.boards.CreateDraft(c.Request.Context(), userID, strings.TrimSpace(request.Name), request.RequestID)
	if err != nil {
		h.respondBoardError(c, "board_create", err)
		return
	}

	if !board.Complete() {
		err = h.dispatcher.DispatchGenerate(c.Request.Context(), tasks.GeneratePayload{
			BoardID:    board.ID,
			OwnerID:    userID,
			ChannelIDs: request.ChannelIDs,
		})
		if err != nil {
			h.logger.Error("generation dispatch failed",
				zap.Int64("board_id", board.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch_failed"})
			return
		}
	}

	h.respondBoard(c, http.StatusAccepted, board)
}

func (h *httpHandler) handleListBoards(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	owned, err := h.boards.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.respondBoardError(c, "board_list", err)
		return
	}

	payloads := make([]boardResponsePayload, 0, len(owned))
	for _, board := range owned {
		payload, err := boardPayload(board)
		if err != nil {
			h.logger.Error("board payload encoding failed",
				zap.String("board_id", board.ExternalID),
				zap.Error(err))
			continue
		}
		payloads = append(payloads, payload)
	}
	c.JSON(http.StatusOK, gin.H{"boards": payloads})
}

func (h *httpHandler) handleGetBoard(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	board, err := h.boards.ByExternalID(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.respondBoardError(c, "board_get", err)
		return
	}
	if board.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	h.respondBoard(c, http.StatusOK, board)
}

type regenerateKeywordsRequestPayload struct {
	Category string `json:"category"`
}

func (h *httpHandler) handleRegenerateKeywords(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request regenerateKeywordsRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Category) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	keywords, err := h.regenerator.RegenerateKeywords(c.Request.Context(), c.Param("external_id"), userID, request.Category)
	if err != nil {
		h.respondBoardError(c, "keyword_regeneration", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": request.Category,
		"keywords": keywords,
	})
}

func (h *httpHandler) handleRegenerateImage(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	imageURL, err := h.regenerator.RegenerateImage(c.Request.Context(), c.Param("external_id"), userID)
	if err != nil {
		h.respondBoardError(c, "image_regeneration", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": imageURL})
}

func (h *httpHandler) handleShareBoard(c *gin.Context) {
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	board, err := h.boards.ByExternalID(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.respondBoardError(c, "board_share", err)
		return
	}
	if board.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if !board.Complete() {
		c.JSON(http.StatusConflict, gin.H{"error": "board_not_generated"})
		return
	}

	shareID, err := h.idProvider.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "share_failed"})
		return
	}
	shareKey := sharedLinkKeyPrefix + shareID
	if err := h.cache.Set(c.Request.Context(), shareKey, []byte(board.ExternalID), sharedLinkTTL); err != nil {
		h.logger.Error("share link store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "share_failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"share_id":   shareID,
		"share_url":  h.shareBaseURL + "/shared/" + shareID,
		"expires_in": int64(sharedLinkTTL.Seconds()),
	})
}

func (h *httpHandler) handleSharedBoard(c *gin.Context) {
	shareKey := sharedLinkKeyPrefix + c.Param("share_id")
	externalID, hit, err := h.cache.Get(c.Request.Context(), shareKey)
	if err != nil || !hit {
		c.JSON(http.StatusNotFound, gin.H{"error": "share_not_found"})
		return
	}

	board, err := h.boards.ByExternalID(c.Request.Context(), string(externalID))
	if err != nil {
		h.respondBoardError(c, "shared_board", err)
		return
	}

	h.respondBoard(c, http.StatusOK, board)
}

type compareBoardsRequestPayload struct {
	FirstBoardID  string `json:"first_board_id"`
	SecondBoardID string `json:"second_board_id"`
}

func (h *httpHandler) handleCompareBoards(c *gin.Context) {
	if h.comparator == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "compare_not_configured"})
		return
	}
	userID, ok := h.requestUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request compareBoardsRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		request.FirstBoardID == "" || request.SecondBoardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	first, err := h.boards.ByExternalID(c.Request.Context(), request.FirstBoardID)
	if err != nil {
		h.respondBoardError(c, "board_compare", err)
		return
	}
	if first.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	second, err := h.boards.ByExternalID(c.Request.Context(), request.SecondBoardID)
	if err != nil {
		h.respondBoardError(c, "board_compare", err)
		return
	}
	if !first.Complete() || !second.Complete() {
		c.JSON(http.StatusConflict, gin.H{"error": "board_not_generated"})
		return
	}

	firstKeywords, err := first.Keywords()
	if err != nil {
		h.respondBoardError(c, "board_compare", err)
		return
	}
	secondKeywords, err := second.Keywords()
	if err != nil {
		h.respondBoardError(c, "board_compare", err)
		return
	}

	comparison, err := h.comparator.Compare(c.Request.Context(), firstKeywords, secondKeywords)
	if err != nil {
		h.respondBoardError(c, "board_compare", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"match_keywords":   comparison.MatchKeywords,
		"total_match_rate": comparison.TotalMatchRate,
	})
}
