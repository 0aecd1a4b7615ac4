package watch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/member"
)

// DenyReason is the human-readable reason attached to a DENY decision.
type DenyReason string

const (
	DenyLoginRequired    DenyReason = "login required"
	DenyPurchaseRequired DenyReason = "purchase required"
	DenyNotOwner         DenyReason = "not owner"
	DenyVideoNotLinked   DenyReason = "video not linked to course"
	DenyLookupFailed     DenyReason = "lookup failed"
	DenyRoleNotAllowed   DenyReason = "role not allowed"
)

// Decision is the access gate's output; not persisted.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

func Allow() Decision            { return Decision{Allowed: true} }
func Deny(r DenyReason) Decision { return Decision{Reason: r} }

// Retryable reports whether the denial stems from a failed lookup (the
// caller may retry) rather than a legitimate authorization denial.
func (d Decision) Retryable() bool { return !d.Allowed && d.Reason == DenyLookupFailed }

// CourseDirectory is the slice of the catalog the gate needs.
// *course.Service satisfies it.
type CourseDirectory interface {
	GetCourse(ctx context.Context, id string) (course.Course, error)
	PurchaseStatus(ctx context.Context, memberID, courseID string) (bool, error)
}

// Gate decides whether playback of a video may begin for a member.
// Decisions are read-only; the gate never mutates state.
type Gate struct {
	courses CourseDirectory
	log     core.Logger
}

func NewGate(courses CourseDirectory, logger core.Logger) *Gate {
	return &Gate{courses: courses, log: logger}
}

func (g *Gate) Authorize(ctx context.Context, ident member.Identity, vid course.Video, courseID string) Decision {
	switch ident.Role {
	case member.RoleAdmin:
		return Allow()
	case member.RoleUser:
		if !ident.IsAuthenticated() {
			return Deny(DenyLoginRequired)
		}
		return g.authorizeUser(ctx, ident, courseID)
	case member.RoleInstructor:
		if !ident.IsAuthenticated() {
			return Deny(DenyLoginRequired)
		}
		return g.authorizeInstructor(ctx, ident, vid)
	case member.RoleAnonymous:
		return Deny(DenyLoginRequired)
	}
	return Deny(DenyRoleNotAllowed)
}

// authorizeUser allows playback iff a purchase record exists and is true.
// "no record" and "purchased=false" both deny with the same reason but are
// logged apart: the former is expected steady state, the latter may be a
// data inconsistency.
func (g *Gate) authorizeUser(ctx context.Context, ident member.Identity, courseID string) Decision {
	purchased, err := g.courses.PurchaseStatus(ctx, ident.ID, courseID)
	if err != nil {
		if errors.Cause(err) == course.ErrPurchaseNotFound {
			g.log.Info(fmt.Sprintf("member %s has no purchase record for course %s", ident.ID, courseID))
			return Deny(DenyPurchaseRequired)
		}
		g.log.Error(fmt.Sprintf("purchase lookup failed for member %s, course %s: %v", ident.ID, courseID, err), err)
		return Deny(DenyLookupFailed)
	}
	if !purchased {
		g.log.Warn(fmt.Sprintf("member %s has an unpurchased record for course %s", ident.ID, courseID))
		return Deny(DenyPurchaseRequired)
	}
	return Allow()
}

func (g *Gate) authorizeInstructor(ctx context.Context, ident member.Identity, vid course.Video) Decision {
	if vid.CourseID == "" {
		g.log.Error(fmt.Sprintf("video %s is not linked to any course", vid.ID))
		return Deny(DenyVideoNotLinked)
	}
	crs, err := g.courses.GetCourse(ctx, vid.CourseID)
	if err != nil {
		g.log.Error(fmt.Sprintf("course lookup failed for video %s, course %s: %v", vid.ID, vid.CourseID, err), err)
		return Deny(DenyLookupFailed)
	}
	if crs.CreatorUsername != ident.Username {
		return Deny(DenyNotOwner)
	}
	return Allow()
}
