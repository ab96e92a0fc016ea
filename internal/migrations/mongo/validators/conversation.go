package validators

import "go.mongodb.org/mongo-driver/bson"

var ConversationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user1_id",
			"user2_id",
			"message_seq",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user1_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"user2_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"message_seq": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var MessageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"conversation_id",
			"sender_id",
			"content",
			"is_read",
			"seq",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"conversation_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"sender_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"content": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 2000,
			},

			"is_read": bson.M{
				"bsonType": "bool",
			},

			"seq": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
