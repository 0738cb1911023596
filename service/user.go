package service

import (
	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/util/common"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) GetFirstUser() (*model.User, error) {
	user := &model.User{}
	err := s.db.Model(model.User{}).Order("id").First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateFirstUser(username string, password string) error {
	if username == "" {
		return common.NewError("username can not be empty")
	} else if password == "" {
		return common.NewError("password can not be empty")
	}
	hash, err := common.HashPassword(password)
	if err != nil {
		return err
	}
	user := &model.User{}
	err = s.db.Model(model.User{}).Order("id").First(user).Error
	if database.IsNotFound(err) {
		user.Username = username
		user.Password = hash
		return s.db.Create(user).Error
	} else if err != nil {
		return err
	}
	user.Username = username
	user.Password = hash
	return s.db.Save(user).Error
}

// CheckUser returns the user matching the credentials, or nil.
func (s *UserService) CheckUser(username string, password string, remoteIP string) *model.User {
	user := &model.User{}
	err := s.db.Model(model.User{}).Where("username = ?", username).First(user).Error
	if database.IsNotFound(err) {
		logger.Warning("wrong username ", username, " from ", remoteIP)
		return nil
	} else if err != nil {
		logger.Warning("check user err:", err, " IP: ", remoteIP)
		return nil
	}
	if !common.CheckPassword(user.Password, password) {
		logger.Warning("wrong password for ", username, " from ", remoteIP)
		return nil
	}
	return user
}
