package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/pkg/auth"
)

func main() {
	userID := flag.Uint("user", 1, "user id")
	email := flag.String("email", "operator@example.com", "user email")
	role := flag.String("role", "operator", "user role")
	production := flag.Bool("production", true, "can operate production")
	sales := flag.Bool("sales", false, "can manage sales")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(auth.Identity{
		UserID:               *userID,
		Email:                *email,
		Role:                 *role,
		CanOperateProduction: *production,
		CanManageSales:       *sales,
	})
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	fmt.Printf("User: %d (%s)\n", *userID, *role)
	fmt.Printf("Token: %s\n", token)
}
