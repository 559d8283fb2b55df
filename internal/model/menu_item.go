package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category values accepted for a menu item.
var Categories = []string{
	"appetizer", "main", "dessert", "beverage", "special", "breakfast", "lunch", "dinner",
}

// DietaryTags values accepted for a menu item.
var DietaryTags = []string{
	"vegetarian", "vegan", "gluten-free", "dairy-free", "nut-free", "spicy",
}

// DefaultImage is stored when a menu item is created without an image.
const DefaultImage = "no-photo.jpg"

// MenuItem is a dish on the menu. Slug is derived from Name.
type MenuItem struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name" validate:"required,max=50"`
	Slug            string             `json:"slug" bson:"slug"`
	Description     string             `json:"description" bson:"description" validate:"required,max=500"`
	Price           *float64           `json:"price" bson:"price" validate:"required,gte=0"`
	Category        string             `json:"category" bson:"category" validate:"required,oneof=appetizer main dessert beverage special breakfast lunch dinner"`
	Ingredients     []string           `json:"ingredients" bson:"ingredients" validate:"required,min=1"`
	DietaryTags     []string           `json:"dietaryTags" bson:"dietaryTags" validate:"dive,oneof=vegetarian vegan gluten-free dairy-free nut-free spicy"`
	Image           string             `json:"image" bson:"image"`
	Featured        bool               `json:"featured" bson:"featured"`
	Available       bool               `json:"available" bson:"available"`
	PreparationTime *int               `json:"preparationTime,omitempty" bson:"preparationTime,omitempty" validate:"omitempty,gte=0"`
	Calories        *int               `json:"calories,omitempty" bson:"calories,omitempty" validate:"omitempty,gte=0"`
	User            uint               `json:"user" bson:"user"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}

// EditableBy reports whether u may change the item: admins and the owner.
func (m *MenuItem) EditableBy(u *User) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.ID == m.User
}
