package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== Audit context ====================

type auditContextKey struct{}

// AuditInfo names who performed a request. For impersonated requests
// UserID is the acting admin, not the impersonated subject.
type AuditInfo struct {
	UserID int64
	Email  string
}

func WithAuditInfo(ctx context.Context, userID int64, email string) context.Context {
	return context.WithValue(ctx, auditContextKey{}, &AuditInfo{
		UserID: userID,
		Email:  email,
	})
}

func GetAuditInfo(ctx context.Context) *AuditInfo {
	if info, ok := ctx.Value(auditContextKey{}).(*AuditInfo); ok {
		return info
	}
	return nil
}

func GetAuditUserID(ctx context.Context) int64 {
	if info := GetAuditInfo(ctx); info != nil {
		return info.UserID
	}
	return 0
}

// ==================== Gin middleware ====================

// AuditContext copies the authenticated identity into the request
// context so the GORM callbacks below can stamp audit columns.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := GetActorID(c)
		email := GetEmail(c)

		if actorID > 0 {
			ctx := WithAuditInfo(c.Request.Context(), actorID, email)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

// ==================== GORM callbacks ====================

// RegisterAuditCallbacks fills CreatedBy/UpdatedBy on insert and
// UpdatedBy on update for any model embedding AuditMixin.
func RegisterAuditCallbacks(db *gorm.DB) {
	db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}

		userID := GetAuditUserID(tx.Statement.Context)
		if userID == 0 {
			return
		}

		setAuditField(tx, "CreatedBy", userID)
		setAuditField(tx, "UpdatedBy", userID)
	})

	db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		if tx.Statement.Context == nil {
			return
		}

		userID := GetAuditUserID(tx.Statement.Context)
		if userID == 0 {
			return
		}

		setAuditField(tx, "UpdatedBy", userID)
	})
}

func setAuditField(tx *gorm.DB, fieldName string, value int64) {
	if tx.Statement.Schema == nil {
		return
	}

	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(tx.Statement.Context, tx.Statement.ReflectValue); isZero {
			_ = field.Set(tx.Statement.Context, tx.Statement.ReflectValue, value)
		}
	case reflect.Slice:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			rv := tx.Statement.ReflectValue.Index(i)
			if _, isZero := field.ValueOf(tx.Statement.Context, rv); isZero {
				_ = field.Set(tx.Statement.Context, rv, value)
			}
		}
	}
}
