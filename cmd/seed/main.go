package main

import (
	"context"
	"log"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/config"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/database"

	"github.com/fatih/color"
)

// Seeds the document store with demo data: a small school with students,
// faculty, pending fees, assignments, messages and announcements.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to DB: %v", err)
	}

	store := docstore.NewGormStore(db, nil, logger.NewNopLogger())
	if err := store.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	ctx := context.Background()
	color.Cyan("🚀 Seeding CampusConnect demo data\n")

	seed := func(collection string, records []model.Record) {
		color.Yellow("\n[SEED] %s", collection)
		for _, r := range records {
			created, err := store.Create(ctx, collection, r)
			if err != nil {
				color.Red("Failed: %v", err)
				continue
			}
			color.Green("  + %s", created.ID())
		}
	}

	day := 24 * time.Hour
	ts := func(d time.Duration) string {
		return time.Now().Add(d).UTC().Format(time.RFC3339Nano)
	}

	seed(model.CollectionStudents, []model.Record{
		{"name": "Rahul Sharma", "class": "12A", "rollNo": "STU001", "email": "rahul.sharma@example.com", "parentId": "PAR001"},
		{"name": "Priya Gupta", "class": "11B", "rollNo": "STU002", "email": "priya.gupta@example.com", "parentId": "PAR002"},
		{"name": "Aman Verma", "class": "12A", "rollNo": "STU003", "email": "aman.verma@example.com", "parentId": "PAR003"},
	})

	seed(model.CollectionFaculty, []model.Record{
		{"name": "Dr. Amit Kumar", "subject": "Mathematics", "email": "amit.kumar@example.com"},
		{"name": "Mrs. Sunita Singh", "subject": "Physics", "email": "sunita.singh@example.com"},
		{"name": "Dr. Rajesh Verma", "subject": "Chemistry", "email": "rajesh.verma@example.com"},
	})

	seed(model.CollectionFees, []model.Record{
		{
			"studentId": "STU001", "studentName": "Rahul Sharma", "class": "12A",
			"feeType": "Tuition Fee", "amount": 20000.0, "totalAmount": 50000.0,
			"paidAmount": 30000.0, "status": "pending",
			"dueDate": ts(30 * day), "academicYear": "2024-25", "semester": "1",
		},
		{
			"studentId": "STU002", "studentName": "Priya Gupta", "class": "11B",
			"feeType": "Tuition Fee", "amount": 48000.0, "totalAmount": 48000.0,
			"paidAmount": 48000.0, "status": "paid",
			"dueDate": ts(30 * day), "academicYear": "2024-25", "semester": "1",
		},
	})

	seed(model.CollectionAssignments, []model.Record{
		{
			"title": "Mathematics Problem Set 1", "subject": "Mathematics", "class": "12A",
			"description": "Solve the following calculus problems. Show all your work.",
			"dueDate":     ts(7 * day), "maxMarks": 100.0,
			"facultyId": "FAC001", "facultyName": "Dr. Amit Kumar", "status": "active",
		},
		{
			"title": "Physics Lab Report", "subject": "Physics", "class": "12A",
			"description": "Complete the lab report for the optics experiment.",
			"dueDate":     ts(5 * day), "maxMarks": 50.0,
			"facultyId": "FAC002", "facultyName": "Mrs. Sunita Singh", "status": "active",
		},
	})

	seed(model.CollectionMessages, []model.Record{
		{
			"senderId": "FAC001", "senderName": "Dr. Amit Kumar",
			"recipientId": "STU001", "recipientType": model.RoleStudent,
			"subject": "Assignment Reminder", "body": "Problem Set 1 is due next week.",
			"sentAt": ts(-2 * time.Hour),
		},
	})

	seed(model.CollectionResults, []model.Record{
		{
			"studentId": "STU001", "examName": "Mid-Term Examination",
			"subject": "Mathematics", "marks": 87.0, "maxMarks": 100.0, "grade": "A",
			"publishedAt": ts(-1 * day),
		},
	})

	seed(model.CollectionNotifications, []model.Record{
		{
			"type": "fee", "priority": "high", "title": "Fee Due Soon",
			"message":     "Your tuition fee is due in 30 days.",
			"recipientId": "STU001", "recipientType": model.RoleStudent,
			"read": false, "dismissed": false,
		},
		{
			"type": "result", "priority": "medium", "title": "Result Published",
			"message":     "Your Mid-Term Examination result is available.",
			"recipientId": "STU001", "recipientType": model.RoleStudent,
			"read": false, "dismissed": false,
		},
	})

	seed(model.CollectionAnnouncements, []model.Record{
		{
			"title": "Annual Sports Day", "body": "Annual sports day will be held on the 15th. All students must register by Friday.",
			"audience": "all", "authorName": "Principal's Office",
		},
	})

	color.Cyan("\n✅ Demo data seeded")
}
