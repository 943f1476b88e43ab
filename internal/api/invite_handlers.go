package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/invite"
	"github.com/anavel898/project-management-dashboard/internal/mail"
	"github.com/anavel898/project-management-dashboard/internal/metrics"
	"github.com/anavel898/project-management-dashboard/internal/middleware"
	"github.com/anavel898/project-management-dashboard/internal/project"
)

// ShareResponse represents the share response body
type ShareResponse struct {
	MessageID string `json:"message_id"`
	JoinToken string `json:"join_token"`
}

// NewShareHandler creates a handler that emails a join link to the user
// registered under ?email=. Owner only.
func NewShareHandler(
	svc project.Service,
	issuer *invite.Issuer,
	mailer mail.Mailer,
	m *metrics.Metrics,
	auditLogger auth.AuditLogger,
	log logrus.FieldLogger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, id, err := projectRequest(r, svc, true)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "email query parameter is required")
			return
		}

		inv, err := issuer.Issue(r.Context(), id, ac.Username(), email)
		if err != nil {
			writeError(w, r, log, err)
			return
		}

		messageID, err := mailer.Send(r.Context(), inv.Invitee.Email, inv.Subject, inv.Body)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"project_id": id,
				"invitee":    inv.Invitee.Username,
				"request_id": middleware.RequestID(r.Context()),
			}).Error("failed to send invite email")
			writeDetail(w, http.StatusInternalServerError, "Failed to send invite email")
			return
		}

		if m != nil {
			m.InviteIssued()
		}
		if auditLogger != nil {
			_ = auditLogger.Log(auth.CreateInviteAuditLog(ac.Username(), id, inv.Invitee.Username, inv.Invitee.Email))
		}

		writeJSON(w, http.StatusOK, ShareResponse{MessageID: messageID, JoinToken: inv.Token})
	}
}

// NewJoinHandler redeems an emailed join link. The route is public: the
// token itself identifies the invitee.
func NewJoinHandler(redeemer *invite.Redeemer, m *metrics.Metrics, auditLogger auth.AuditLogger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		projectID, err := strconv.ParseInt(q.Get("project_id"), 10, 64)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "project_id must be an integer")
			return
		}
		token := q.Get("join_token")
		if token == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "join_token is required")
			return
		}

		grant, err := redeemer.Redeem(r.Context(), token, projectID)
		if err != nil {
			if errors.Is(err, project.ErrProjectNotFound) {
				err = projectNotFound(projectID)
			}
			if m != nil {
				m.InviteRedeemed(false)
			}
			if auditLogger != nil {
				_, reason := statusFor(err)
				_ = auditLogger.Log(auth.CreateJoinAuditLog(false, "", projectID, reason, middleware.GetClientIP(r)))
			}
			writeError(w, r, log, err)
			return
		}

		if m != nil {
			m.InviteRedeemed(true)
		}
		if auditLogger != nil {
			_ = auditLogger.Log(auth.CreateJoinAuditLog(true, grant.Username, projectID, "", middleware.GetClientIP(r)))
		}
		writeJSON(w, http.StatusOK, grant)
	}
}
