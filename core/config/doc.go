// Package config provides centralized configuration loading for the application.
//
// Configuration is assembled from three layers, in increasing precedence:
//
//  1. Default values declared as 'default' struct tags on each partial config
//  2. A .env file in the working directory (loaded via godotenv)
//  3. Process environment variables (mapped by viper, dots become underscores,
//     e.g. LANSWEEPER_SITE_ID -> lansweeper.site_id)
//
// Each core package owns its partial Config struct; this package only composes
// them and drives the binding.
package config
