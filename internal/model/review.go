package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is a user's rating of a menu item.
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title     string             `json:"title" bson:"title" validate:"required,max=100"`
	Text      string             `json:"text" bson:"text" validate:"required"`
	Rating    int                `json:"rating" bson:"rating" validate:"required,min=1,max=10"`
	MenuItem  primitive.ObjectID `json:"menuItem" bson:"menuItem"`
	User      uint               `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
