package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primarykey"`
	Nickname     string    `gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	CDate        time.Time `gorm:"->;<-:create;autoCreateTime"`
}

type Board struct {
	ID      uint      `gorm:"primarykey"`
	Slug    string    `gorm:"type:char(12);uniqueIndex;not null"`
	Title   string    `gorm:"type:text;not null"`
	OwnerID uint      `gorm:"index;not null"`
	CDate   time.Time `gorm:"->;<-:create;autoCreateTime"`
	MDate   time.Time `gorm:"autoUpdateTime"`

	Owner User   `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Lists []List `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

type List struct {
	ID       uint   `gorm:"primarykey"`
	BoardID  uint   `gorm:"index;not null"`
	Title    string `gorm:"type:text;not null"`
	Position int    `gorm:"not null;default:0"`

	Cards []Card `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

type Card struct {
	ID         uint   `gorm:"primarykey"`
	ListID     uint   `gorm:"index;not null"`
	Title      string `gorm:"type:text;not null"`
	Body       string `gorm:"type:text"`
	Position   int    `gorm:"not null;default:0"`
	Done       bool   `gorm:"not null;default:false"`
	AssigneeID *uint  `gorm:"index"`
	CDate      time.Time `gorm:"->;<-:create;autoCreateTime"`
	MDate      time.Time `gorm:"autoUpdateTime"`

	Assignee *User   `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL"`
	Labels   []Label `gorm:"many2many:card_labels;constraint:OnDelete:CASCADE"`
}

type Label struct {
	ID      uint   `gorm:"primarykey"`
	BoardID uint   `gorm:"uniqueIndex:idx_label_board_name;not null"`
	Name    string `gorm:"type:text;uniqueIndex:idx_label_board_name;not null"`
	Color   string `gorm:"type:char(7);not null;default:'#cccccc'"`

	Board Board `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}
