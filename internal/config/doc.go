// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//  1. Default()
//  2. a YAML file (ERGO_CONFIG, config.yaml or configs/config.yaml)
//  3. environment variables with the ERGO_ prefix
//
// # Environment Variables
//
// Nested sections join with an underscore:
//
//	ERGO_SERVER_PORT=8080
//	ERGO_SOURCE_KIND=csv_url
//	ERGO_SOURCE_URL=https://docs.google.com/spreadsheets/d/e/.../pub?output=csv
//	ERGO_SOURCE_CACHE_TTL=10m
//	ERGO_PIPELINE_TIMEZONE=America/Sao_Paulo
//	ERGO_PIPELINE_SECTOR_ALIASES="laminacao gdr:Laminação,lam:Laminação"
//
// # YAML
//
//	source:
//	  kind: sheets
//	  spreadsheet_id: 1AbC...
//	  range: "Respostas!A:Z"
//	  credentials_file: /etc/ergopulse/sa.json
//	pipeline:
//	  affirmative_token: SIM
//	  region_aliases:
//	    mao: Mãos
package config
