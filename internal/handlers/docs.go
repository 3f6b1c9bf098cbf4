package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the renewable share API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Renewable Share API",
			"description": "Germany daily renewable-electricity share with an incrementally maintained yearly average",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/share/today": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Today's renewable share with comparison",
					"description": "Today's share, weather, day type and deltas against the yearly average and typical-year values",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"share":                map[string]interface{}{"$ref": "#/components/schemas/DailyShare"},
											"weather":              map[string]interface{}{"$ref": "#/components/schemas/WeatherSummary"},
											"day_type":             map[string]interface{}{"type": "string", "enum": []string{"working_day", "weekend", "holiday"}},
											"demand_hint":          map[string]string{"type": "string"},
											"yearly_share_percent": map[string]string{"type": "number"},
											"share_delta_percent":  map[string]string{"type": "number"},
											"sun_delta_hours":      map[string]string{"type": "number"},
											"wind_delta_kmh":       map[string]string{"type": "number"},
											"target_year":          map[string]string{"type": "integer"},
											"target_share_percent": map[string]string{"type": "number"},
											"years_to_target":      map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
						"502": map[string]interface{}{"description": "Upstream data source unavailable"},
					},
				},
			},
			"/api/share": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Renewable share for a date",
					"description": "Daily renewable share aligned to the bottleneck timestamp both feeds have reported up to",
					"parameters": []map[string]interface{}{
						{
							"name":        "date",
							"in":          "query",
							"description": "Date to compute (YYYY-MM-DD, default today)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{"$ref": "#/components/schemas/DailyShare"},
								},
							},
						},
						"400": map[string]interface{}{"description": "Invalid date"},
						"502": map[string]interface{}{"description": "Upstream data source unavailable"},
					},
				},
			},
			"/api/yearly": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Persisted yearly aggregate",
					"description": "The running yearly average; display value falls back to the configured default when no record exists",
					"parameters": []map[string]interface{}{
						{
							"name":        "year",
							"in":          "query",
							"description": "Year to read (default current year)",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"state":                 map[string]interface{}{"$ref": "#/components/schemas/YearlyState"},
											"display_share_percent": map[string]string{"type": "number"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/yearly/update": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Run the yearly aggregate update",
					"description": "Advances the finalization watermark and blends the recent window; no-op when already up to date",
					"requestBody": map[string]interface{}{
						"required": false,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"date":     map[string]string{"type": "string", "format": "date"},
										"lag_days": map[string]string{"type": "integer"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Updated state",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{"$ref": "#/components/schemas/YearlyState"},
								},
							},
						},
						"409": map[string]interface{}{"description": "Concurrent update won the compare-and-swap"},
						"422": map[string]interface{}{"description": "Blended share below the plausibility floor"},
						"502": map[string]interface{}{"description": "Upstream data source unavailable"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service healthy"},
						"503": map[string]interface{}{"description": "Database unreachable"},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"DailyShare": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"renewable_mwh":   map[string]string{"type": "number"},
						"consumption_mwh": map[string]string{"type": "number"},
						"share_percent":   map[string]string{"type": "number"},
						"as_of":           map[string]string{"type": "string", "format": "date-time"},
					},
				},
				"WeatherSummary": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"sun_hours":      map[string]string{"type": "number"},
						"wind_speed_kmh": map[string]string{"type": "number"},
					},
				},
				"YearlyState": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"year":                      map[string]string{"type": "integer"},
						"finalized_date":            map[string]string{"type": "string", "format": "date"},
						"finalized_renewable_mwh":   map[string]string{"type": "number"},
						"finalized_consumption_mwh": map[string]string{"type": "number"},
						"renewable_share_percent":   map[string]string{"type": "number"},
						"version":                   map[string]string{"type": "integer"},
						"updated_at":                map[string]string{"type": "string", "format": "date-time"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
