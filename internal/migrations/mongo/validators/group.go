package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingSchema = bson.M{
	"bsonType": "object",
	"required": []string{
		"id",
		"title",
		"teacherId",
		"locationId",
		"date",
		"startTime",
		"endTime",
		"type",
	},
	"additionalProperties": true,

	"properties": bson.M{
		"id": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 64,
		},

		"title": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 100,
		},

		"teacherId": bson.M{
			"bsonType": "string",
		},

		"teacherName": bson.M{
			"bsonType": "string",
		},

		"locationId": bson.M{
			"enum": []string{"yl", "mk"},
		},

		"date": bson.M{
			"bsonType": "string",
			"pattern":  `^\d{4}-\d{2}-\d{2}$`,
		},

		"startTime": bson.M{
			"bsonType": "string",
			"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
		},

		"endTime": bson.M{
			"bsonType": "string",
			"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
		},

		"type": bson.M{
			"enum": []string{"MONTHLY", "TEMPORARY"},
		},

		"description": bson.M{
			"bsonType":  "string",
			"maxLength": 500,
		},
	},
}

// GroupValidator checks the shared group document. Every write replaces the
// whole document, so the array is validated as one unit.
var GroupValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"bookings",
			"lastUpdated",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
				"pattern":   `^[A-Z0-9_-]+$`,
			},

			"bookings": bson.M{
				"bsonType": "array",
				"items":    bookingSchema,
			},

			"lastUpdated": bson.M{
				"bsonType": "string",
			},
		},
	},
}
