package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"dog_id",
			"renter_id",
			"owner_id",
			"start_time",
			"end_time",
			"status",
			"payment_status",
			"total_amount",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"dog_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"renter_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"Pending",
					"Confirmed",
					"Cancelled",
					"Completed",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"Pending",
					"Paid",
					"Refunded",
				},
			},

			"total_amount": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
