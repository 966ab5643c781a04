package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserValidate(t *testing.T) {
	group := "group-1"

	student := &User{Role: RoleStudent, ApprovalState: ApprovalPending, GroupID: &group}
	assert.NoError(t, student.Validate())

	teacher := &User{Role: RoleTeacher, ApprovalState: ApprovalApproved}
	assert.NoError(t, teacher.Validate())

	assert.ErrorIs(t, (&User{Role: UserRole("PRINCIPAL"), ApprovalState: ApprovalApproved}).Validate(), ErrInvalidRole)
	assert.ErrorIs(t, (&User{Role: RoleTeacher, ApprovalState: ApprovalApproved, GroupID: &group}).Validate(), ErrNonStudentGroup)
	assert.ErrorIs(t, (&User{Role: RoleAdmin, ApprovalState: ApprovalPending}).Validate(), ErrNonStudentApproval)
	assert.ErrorIs(t, (&User{Role: RoleStudent, ApprovalState: ApprovalState("MAYBE")}).Validate(), ErrInvalidApprovalState)
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "Ada", (&User{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Lovelace", (&User{LastName: "Lovelace"}).FullName())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, UserRole("ROOT").Valid())

	assert.True(t, ApprovalRejected.Valid())
	assert.False(t, ApprovalState("").Valid())

	assert.True(t, AttendanceExcused.Valid())
	assert.False(t, AttendanceStatus("SLEEPING").Valid())

	assert.True(t, SessionLab.Valid())
	assert.False(t, SessionType("SEMINAR").Valid())
}
