package cmd

import (
	"fmt"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/service"
)

func userService() (*service.UserService, error) {
	db, err := database.InitDB(config.GetDBPath())
	if err != nil {
		return nil, err
	}
	return service.NewUserService(db), nil
}

func resetAdmin() error {
	users, err := userService()
	if err != nil {
		return err
	}
	if err := users.UpdateFirstUser("admin", "admin"); err != nil {
		return fmt.Errorf("reset admin credentials failed: %w", err)
	}
	fmt.Println("reset admin credentials success")
	return nil
}

func updateAdmin(username string, password string) error {
	users, err := userService()
	if err != nil {
		return err
	}
	if err := users.UpdateFirstUser(username, password); err != nil {
		return fmt.Errorf("update admin credentials failed: %w", err)
	}
	fmt.Println("update admin credentials success")
	return nil
}

func showAdmin() error {
	users, err := userService()
	if err != nil {
		return err
	}
	userModel, err := users.GetFirstUser()
	if err != nil {
		return fmt.Errorf("get current user info failed: %w", err)
	}
	fmt.Println("First admin credentials:")
	fmt.Println("\tUsername:\t", userModel.Username)
	fmt.Println("\tPassword:\t (stored as a bcrypt hash)")
	return nil
}
