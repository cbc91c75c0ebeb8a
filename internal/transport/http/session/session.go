package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	accountIDKey = "account_id"
	flashesKey   = "flashes"
)

// Flash levels shown to the user on the next rendered page.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message stored in the session until the next render.
type Flash struct {
	Level   string
	Message string
}

func init() {
	gob.Register([]Flash{})
}

// SignIn binds the session to an account. Existing session values are
// discarded so nothing leaks across a login boundary.
func SignIn(c *gin.Context, accountID string) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(accountIDKey, accountID)
	return s.Save()
}

// SignOut drops every session value, including the account binding. The
// cookie itself survives so a post-logout flash can still be delivered.
func SignOut(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}

// Refresh re-saves the session so the authenticated cookie stays valid after
// sensitive changes such as a password update.
func Refresh(c *gin.Context) error {
	s := sessions.Default(c)
	return s.Save()
}

// CurrentAccountID returns the signed-in account's ID, if any.
func CurrentAccountID(c *gin.Context) (string, bool) {
	s := sessions.Default(c)
	raw := s.Get(accountIDKey)
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// AddFlash queues a one-shot message for the next page render.
func AddFlash(c *gin.Context, level, message string) error {
	s := sessions.Default(c)

	queue, _ := s.Get(flashesKey).([]Flash)
	queue = append(queue, Flash{Level: level, Message: message})
	s.Set(flashesKey, queue)
	return s.Save()
}

// PopFlashes returns all queued messages and removes them from the session,
// so each message is shown exactly once.
func PopFlashes(c *gin.Context) ([]Flash, error) {
	s := sessions.Default(c)

	queue, ok := s.Get(flashesKey).([]Flash)
	if !ok || len(queue) == 0 {
		return nil, nil
	}

	s.Delete(flashesKey)
	if err := s.Save(); err != nil {
		return nil, err
	}
	return queue, nil
}
