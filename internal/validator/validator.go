// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("restore_type", validateRestoreType)
		_ = v.RegisterValidation("audit_action", validateAuditAction)
		_ = v.RegisterValidation("requirement_status", validateRequirementStatus)
		_ = v.RegisterValidation("assessment_status", validateAssessmentStatus)
		_ = v.RegisterValidation("org_role", validateOrgRole)
	}
}

func validateRestoreType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "TIME_POINT", "SINGLE_RECORD", "TABLE":
		return true
	}
	return false
}

func validateAuditAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "INSERT", "UPDATE", "DELETE":
		return true
	}
	return false
}

func validateRequirementStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "draft", "fulfilled", "partially-fulfilled", "not-applicable":
		return true
	}
	return false
}

func validateAssessmentStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "open", "in_review", "completed":
		return true
	}
	return false
}

func validateOrgRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "owner", "admin", "auditor", "member":
		return true
	}
	return false
}
