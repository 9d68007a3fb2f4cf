package chats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/docuchat/server/api/rest/pagination"
	"codeberg.org/docuchat/server/internal/auth"
	"codeberg.org/docuchat/server/internal/chat"
	"codeberg.org/docuchat/server/internal/errors"
)

// CreateSessionHandler opens a chat session on one of the caller's collections
func CreateSessionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		var req chat.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		if !errors.ValidateUUID(c, req.CollectionID, "collection") {
			return
		}

		session, err := svc.Create(c.Request.Context(), userID, req)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

// ListSessionsHandler lists sessions, most recently updated first
func ListSessionsHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "")
			return
		}

		params := pagination.FromQuery(c)

		sessions, total, err := svc.List(c.Request.Context(), userID, params.Limit, params.Offset)
		if err != nil {
			errors.InternalError(c, "failed to list chat sessions", err)
			return
		}

		c.JSON(http.StatusOK, SessionsListResponse{
			Sessions:   sessions,
			Pagination: pagination.NewMeta(params, total),
		})
	}
}

// GetSessionHandler returns a session with its current settings
func GetSessionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		session, err := svc.Get(c.Request.Context(), sessionID, userID)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// UpdateSessionHandler applies a partial settings update atomically
func UpdateSessionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		var req chat.SettingsUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		session, err := svc.UpdateSettings(c.Request.Context(), sessionID, userID, req)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// RenameSessionHandler changes only the session title
func RenameSessionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		var req RenameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		session, err := svc.Rename(c.Request.Context(), sessionID, userID, req.Title)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// DeleteSessionHandler removes a session and its messages, abandoning any turn in flight
func DeleteSessionHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), sessionID, userID); err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "chat session deleted"})
	}
}

// ListMessagesHandler pages through a session's messages, oldest first
func ListMessagesHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		params := pagination.DefaultParams(0, 0, 500, 500)
		if c.Query("limit") != "" || c.Query("offset") != "" {
			params = pagination.FromQuery(c)
		}

		messages, err := svc.Messages(c.Request.Context(), sessionID, userID, params.Limit, params.Offset)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, MessagesListResponse{Messages: messages})
	}
}

// SendMessageHandler runs one retrieval-augmented turn and returns both messages
func SendMessageHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, ok := pathParams(c)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		reply, err := svc.Send(c.Request.Context(), sessionID, userID, req.Content)
		if err != nil {
			errors.Respond(c, "chat session", err)
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}

// MessageAudioHandler returns the message audio, synthesizing it on first use
func MessageAudioHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, messageID, ok := pathParams(c)
		if !ok {
			return
		}

		url, err := svc.Audio(c.Request.Context(), messageID, userID)
		if err != nil {
			errors.Respond(c, "message", err)
			return
		}

		c.JSON(http.StatusOK, AudioResponse{AudioURL: url})
	}
}

// TranslateMessageHandler translates a message once and returns the stored text afterwards
func TranslateMessageHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, messageID, ok := pathParams(c)
		if !ok {
			return
		}

		var req TranslateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		text, err := svc.Translate(c.Request.Context(), messageID, userID, req.TargetLang)
		if err != nil {
			errors.Respond(c, "message", err)
			return
		}

		c.JSON(http.StatusOK, TranslateResponse{TranslatedContent: text})
	}
}

// LanguagesHandler lists the language pairs the speech service can translate
func LanguagesHandler(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		languages, err := svc.Languages(c.Request.Context())
		if err != nil {
			errors.Respond(c, "languages", err)
			return
		}

		c.JSON(http.StatusOK, LanguagesResponse{Languages: languages})
	}
}

// authenticated user and the :id path parameter
func pathParams(c *gin.Context) (userID, id string, ok bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "")
		return "", "", false
	}

	id, ok = errors.ValidatePathUUID(c, "id")
	return userID, id, ok
}
