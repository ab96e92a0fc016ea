package validators

import "go.mongodb.org/mongo-driver/bson"

var ListingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"breed",
			"size",
			"activity_level",
			"owner_id",
			"owner_type",
			"hourly_rate",
			"city",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 60,
			},

			"breed": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 60,
			},

			"size": bson.M{
				"bsonType": "string",
				"enum":     []string{"Small", "Medium", "Large"},
			},

			"age": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  30,
			},

			"personalities": bson.M{
				"bsonType": "array",
				"maxItems": 9,
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"activity_level": bson.M{
				"bsonType": "string",
				"enum":     []string{"Low", "Medium", "High"},
			},

			"image_urls": bson.M{
				"bsonType": "array",
				"maxItems": 10,
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"owner_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"Individual", "Shelter"},
			},

			"hourly_rate": bson.M{
				"bsonType":         []string{"double", "int", "long"},
				"exclusiveMinimum": 0,
			},

			"city": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 80,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var ReviewValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"dog_id",
			"reviewer_id",
			"rating",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"dog_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"rating": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  5,
			},

			"comment": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
