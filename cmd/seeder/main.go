package main

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/deskforge/pushdesk/internal/config"
	"github.com/deskforge/pushdesk/internal/model"
)

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Create 10 users (user1 is an admin)
	log.Println("🌱 Seeding 10 users...")

	for i := 1; i <= 10; i++ {
		email := fmt.Sprintf("user%d@pushdesk.local", i)

		// Check if exists
		var existing model.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			continue
		}

		user := model.User{
			Name:  fmt.Sprintf("User Number %d", i),
			Email: email,
			Admin: i == 1,
		}

		if err := db.Create(&user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", email, err)
		} else {
			log.Printf("✅ Created user: %s (id=%d)", email, user.ID)
		}
	}

	seedTechGroup(db)
	seedTickets(db)

	log.Println("🎉 Seeding completed!")
}

// seedTechGroup puts users 2-4 into a technician group.
func seedTechGroup(db *gorm.DB) {
	var group model.Group
	if err := db.Where("name = ?", "Technicians").First(&group).Error; err == nil {
		return
	}

	group = model.Group{Name: "Technicians"}
	if err := db.Create(&group).Error; err != nil {
		log.Printf("❌ Failed to create group: %v", err)
		return
	}

	var users []model.User
	if err := db.Order("id").Offset(1).Limit(3).Find(&users).Error; err != nil {
		log.Printf("❌ Failed to load users for group: %v", err)
		return
	}
	for _, u := range users {
		member := model.GroupMember{GroupID: group.ID, UserID: u.ID}
		if err := db.Create(&member).Error; err != nil {
			log.Printf("❌ Failed to add user %d to group: %v", u.ID, err)
		}
	}
	log.Printf("✅ Created group Technicians with %d members", len(users))
}

// seedTickets creates a handful of demo tickets with mixed actor setups.
func seedTickets(db *gorm.DB) {
	var count int64
	db.Model(&model.Ticket{}).Count(&count)
	if count > 0 {
		return
	}

	var requester, tech model.User
	if err := db.Order("id").First(&requester).Error; err != nil {
		log.Printf("❌ No users to assign tickets to: %v", err)
		return
	}
	db.Order("id").Offset(1).First(&tech)

	var group model.Group
	db.Where("name = ?", "Technicians").First(&group)

	log.Println("🌱 Seeding 5 tickets...")
	for i := 1; i <= 5; i++ {
		ticket := model.Ticket{
			Title:           fmt.Sprintf("Demo ticket %d", i),
			RecipientUserID: requester.ID,
			ModifiedAt:      time.Now().Add(-time.Duration(i) * time.Hour),
		}
		if err := db.Create(&ticket).Error; err != nil {
			log.Printf("❌ Failed to create ticket %d: %v", i, err)
			continue
		}
		db.Model(&ticket).Update("link_path", fmt.Sprintf("/front/ticket.form.php?id=%d", ticket.ID))

		actors := []model.TicketActor{
			{TicketID: ticket.ID, Role: model.ActorRequester, UserID: &requester.ID},
		}
		if tech.ID != 0 {
			actors = append(actors, model.TicketActor{TicketID: ticket.ID, Role: model.ActorAssigned, UserID: &tech.ID})
		}
		if group.ID != 0 && i%2 == 0 {
			actors = append(actors, model.TicketActor{TicketID: ticket.ID, Role: model.ActorObserver, GroupID: &group.ID})
		}
		for _, actor := range actors {
			if err := db.Create(&actor).Error; err != nil {
				log.Printf("❌ Failed to create ticket actor: %v", err)
			}
		}
		log.Printf("✅ Created ticket #%d with %d actors", ticket.ID, len(actors))
	}
}
