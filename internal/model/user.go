package model

// User roles. Admins moderate and configure; agents can hold more
// listings than regular users but go through the same moderation.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

type User struct {
	BaseModel
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	DisplayName  string `gorm:"size:100" json:"display_name"`
	Phone        string `gorm:"size:30" json:"phone"`
	Role         string `gorm:"size:20;default:'user';index" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Listings  []Listing  `gorm:"foreignKey:OwnerID" json:"-"`
	Favorites []Favorite `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
