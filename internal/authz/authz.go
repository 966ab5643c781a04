// Package authz decides whether an actor may perform an operation on a
// target. It holds no state and never mutates any; services consult it
// before every mutating or scoping read.
package authz

import (
	"github.com/idir-saidi/campus-records-api/internal/models"
)

// Actor is the authenticated identity threaded through every operation.
// It replaces any ambient "current user" notion.
type Actor struct {
	ID            string
	Role          models.UserRole
	ApprovalState models.ApprovalState
}

// Operation enumerates the permission-checked actions of the core.
type Operation string

const (
	OpCreateCourse     Operation = "course.create"
	OpUpdateCourse     Operation = "course.update"
	OpDeleteCourse     Operation = "course.delete"
	OpCreateGroup      Operation = "group.create"
	OpUpdateGroup      Operation = "group.update"
	OpDeleteGroup      Operation = "group.delete"
	OpAssignCatalog    Operation = "group.assign"
	OpCreateAssignment Operation = "assignment.create"
	OpDeleteAssignment Operation = "assignment.delete"
	OpManageSessions   Operation = "assignment.sessions"
	OpApproveStudent   Operation = "student.approve"
	OpRejectStudent    Operation = "student.reject"
	OpDeleteStudent    Operation = "student.delete"
	OpCreateTeacher    Operation = "teacher.create"
	OpDeleteTeacher    Operation = "teacher.delete"
	OpUpsertGrade      Operation = "grade.upsert"
	OpMarkAttendance   Operation = "attendance.mark"
	OpReadOwnRecords   Operation = "records.read-own"
	OpUploadFile       Operation = "file.upload"
	OpDeleteFile       Operation = "file.delete"
	OpUploadTimetable  Operation = "timetable.upload"
	OpReadNotification Operation = "notification.read"
	OpReadMessage      Operation = "message.read"
)

// Target carries the entity context a decision depends on. Fields are
// optional; an operation reads only the ones it cares about.
type Target struct {
	// OwnerID is the user that owns the record (student for grades and
	// attendance, receiver for messages, uploader for files).
	OwnerID string
	// Role is the role of the target user when the target is a user.
	Role models.UserRole
	// AuthorityTeacherID is the teacher resolved from the course
	// assignment covering the target's (course, group) pair.
	AuthorityTeacherID string
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CanPerform applies the policy table. It is a pure function of its
// arguments.
func CanPerform(actor Actor, op Operation, target Target) Decision {
	switch op {
	case OpCreateCourse, OpUpdateCourse, OpDeleteCourse,
		OpCreateGroup, OpUpdateGroup, OpDeleteGroup, OpAssignCatalog,
		OpCreateAssignment, OpDeleteAssignment, OpManageSessions,
		OpCreateTeacher, OpDeleteTeacher, OpDeleteStudent,
		OpUploadTimetable:
		if actor.Role != models.RoleAdmin {
			return deny("administrator role required")
		}
		return allow()

	case OpApproveStudent, OpRejectStudent:
		if actor.Role != models.RoleAdmin {
			return deny("administrator role required")
		}
		if target.Role != models.RoleStudent {
			return deny("approval applies to student accounts only")
		}
		return allow()

	case OpUpsertGrade, OpMarkAttendance:
		if actor.Role == models.RoleAdmin {
			return allow()
		}
		if actor.Role != models.RoleTeacher {
			return deny("teacher role required")
		}
		if target.AuthorityTeacherID == "" {
			return deny("no teaching authority over this course and group")
		}
		if target.AuthorityTeacherID != actor.ID {
			return deny("teaching authority belongs to another teacher")
		}
		return allow()

	case OpReadOwnRecords:
		if actor.Role == models.RoleAdmin || actor.Role == models.RoleTeacher {
			return allow()
		}
		if target.OwnerID != actor.ID {
			return deny("records belong to another student")
		}
		if actor.ApprovalState != models.ApprovalApproved {
			return deny("account is not approved")
		}
		return allow()

	case OpUploadFile:
		if actor.Role == models.RoleAdmin || actor.Role == models.RoleTeacher {
			return allow()
		}
		return deny("teacher or administrator role required")

	case OpDeleteFile:
		if actor.Role == models.RoleAdmin {
			return allow()
		}
		if target.OwnerID == actor.ID {
			return allow()
		}
		return deny("only the uploader or an administrator may delete a file")

	case OpReadNotification, OpReadMessage:
		if target.OwnerID != actor.ID {
			return deny("record belongs to another user")
		}
		return allow()
	}

	return deny("unknown operation")
}
