package model

type User struct {
	Id       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Username string `json:"username" form:"username" gorm:"unique"`
	Password string `json:"-" form:"password"`
}
