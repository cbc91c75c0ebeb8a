package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/repository"
	"github.com/arklim/account-portal/internal/transport/http/session"
)

// accountContextKey is where the guard stores the loaded account.
const accountContextKey = "current_account"

// RequireAccount redirects anonymous requests to the login page, carrying the
// original path in ?next= so login can return the user where they started.
// The account row is loaded fresh on every request, so a deleted account
// invalidates its session immediately.
func RequireAccount(accounts port.AccountRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := session.CurrentAccountID(c)
		if !ok {
			redirectToLogin(c)
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), accountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// The account vanished underneath the session.
				_ = session.SignOut(c)
				redirectToLogin(c)
				return
			}
			log.Error("failed to load session account",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(accountContextKey, account)
		c.Next()
	}
}

// RedirectIfAuthenticated sends signed-in users straight to their profile,
// keeping them off the login and registration pages.
func RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.CurrentAccountID(c); ok {
			c.Redirect(http.StatusFound, "/profile/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AccountFromContext returns the account loaded by RequireAccount.
func AccountFromContext(c *gin.Context) (*domain.Account, bool) {
	value, exists := c.Get(accountContextKey)
	if !exists {
		return nil, false
	}
	account, ok := value.(*domain.Account)
	return account, ok
}

func redirectToLogin(c *gin.Context) {
	target := "/login/"
	if next := c.Request.URL.Path; SafeNextPath(next) && next != "/login/" {
		target += "?next=" + url.QueryEscape(next)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// SafeNextPath accepts only local absolute paths as post-login redirect
// targets, rejecting protocol-relative and absolute URLs.
func SafeNextPath(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") {
		return false
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return false
	}
	if strings.ContainsAny(next, "\r\n") {
		return false
	}
	return true
}
