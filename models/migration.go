package models

import (
	"log"

	"github.com/epicdata/stockroom_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{},
		&PickListItem{},
		&SavedList{}, &SavedListItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
