package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           aicore API
// @version         1.0
// @description     HTTP API for model configuration, inference and runtime management.
//
// @contact.name   aicore maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
//
// @schemes http
