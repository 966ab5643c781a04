package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

func admin() Actor {
	return Actor{ID: "admin-1", Role: models.RoleAdmin, ApprovalState: models.ApprovalApproved}
}

func teacher(id string) Actor {
	return Actor{ID: id, Role: models.RoleTeacher, ApprovalState: models.ApprovalApproved}
}

func student(id string, state models.ApprovalState) Actor {
	return Actor{ID: id, Role: models.RoleStudent, ApprovalState: state}
}

func TestCanPerformAdminOnlyOperations(t *testing.T) {
	adminOps := []Operation{
		OpCreateCourse, OpUpdateCourse, OpDeleteCourse,
		OpCreateGroup, OpUpdateGroup, OpDeleteGroup, OpAssignCatalog,
		OpCreateAssignment, OpDeleteAssignment, OpManageSessions,
		OpCreateTeacher, OpDeleteTeacher, OpDeleteStudent,
		OpUploadTimetable,
	}

	for _, op := range adminOps {
		assert.True(t, CanPerform(admin(), op, Target{}).Allowed, string(op))
		assert.False(t, CanPerform(teacher("t-1"), op, Target{}).Allowed, string(op))
		assert.False(t, CanPerform(student("s-1", models.ApprovalApproved), op, Target{}).Allowed, string(op))
	}
}

func TestCanPerformApproval(t *testing.T) {
	target := Target{Role: models.RoleStudent}

	assert.True(t, CanPerform(admin(), OpApproveStudent, target).Allowed)
	assert.True(t, CanPerform(admin(), OpRejectStudent, target).Allowed)
	assert.False(t, CanPerform(teacher("t-1"), OpApproveStudent, target).Allowed)

	// Approval never applies to staff accounts.
	decision := CanPerform(admin(), OpApproveStudent, Target{Role: models.RoleTeacher})
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "student accounts")
}

func TestCanPerformGradeAndAttendanceAuthority(t *testing.T) {
	for _, op := range []Operation{OpUpsertGrade, OpMarkAttendance} {
		// Admins bypass the authority check entirely.
		assert.True(t, CanPerform(admin(), op, Target{}).Allowed, string(op))

		// The assigned teacher may write.
		assert.True(t, CanPerform(teacher("t-1"), op, Target{AuthorityTeacherID: "t-1"}).Allowed, string(op))

		// A different teacher may not.
		decision := CanPerform(teacher("t-2"), op, Target{AuthorityTeacherID: "t-1"})
		assert.False(t, decision.Allowed, string(op))
		assert.Contains(t, decision.Reason, "another teacher")

		// No assignment covering the pair means no teacher may write.
		decision = CanPerform(teacher("t-1"), op, Target{})
		assert.False(t, decision.Allowed, string(op))
		assert.Contains(t, decision.Reason, "no teaching authority")

		assert.False(t, CanPerform(student("s-1", models.ApprovalApproved), op, Target{}).Allowed, string(op))
	}
}

func TestCanPerformReadOwnRecords(t *testing.T) {
	assert.True(t, CanPerform(admin(), OpReadOwnRecords, Target{OwnerID: "s-1"}).Allowed)
	assert.True(t, CanPerform(teacher("t-1"), OpReadOwnRecords, Target{OwnerID: "s-1"}).Allowed)

	assert.True(t, CanPerform(student("s-1", models.ApprovalApproved), OpReadOwnRecords, Target{OwnerID: "s-1"}).Allowed)

	decision := CanPerform(student("s-2", models.ApprovalApproved), OpReadOwnRecords, Target{OwnerID: "s-1"})
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "another student")

	decision = CanPerform(student("s-1", models.ApprovalPending), OpReadOwnRecords, Target{OwnerID: "s-1"})
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "not approved")
}

func TestCanPerformFileOperations(t *testing.T) {
	assert.True(t, CanPerform(admin(), OpUploadFile, Target{}).Allowed)
	assert.True(t, CanPerform(teacher("t-1"), OpUploadFile, Target{}).Allowed)
	assert.False(t, CanPerform(student("s-1", models.ApprovalApproved), OpUploadFile, Target{}).Allowed)

	assert.True(t, CanPerform(admin(), OpDeleteFile, Target{OwnerID: "t-1"}).Allowed)
	assert.True(t, CanPerform(teacher("t-1"), OpDeleteFile, Target{OwnerID: "t-1"}).Allowed)
	assert.False(t, CanPerform(teacher("t-2"), OpDeleteFile, Target{OwnerID: "t-1"}).Allowed)
}

func TestCanPerformOwnedReads(t *testing.T) {
	for _, op := range []Operation{OpReadNotification, OpReadMessage} {
		assert.True(t, CanPerform(student("s-1", models.ApprovalApproved), op, Target{OwnerID: "s-1"}).Allowed, string(op))
		assert.False(t, CanPerform(student("s-2", models.ApprovalApproved), op, Target{OwnerID: "s-1"}).Allowed, string(op))
	}
}

func TestCanPerformUnknownOperation(t *testing.T) {
	decision := CanPerform(admin(), Operation("nope"), Target{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, "unknown operation", decision.Reason)
}
