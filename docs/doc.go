// Package docs provides generated OpenAPI documentation.
//
// Medvision API
//
//	@title			Medvision API
//	@version		1.0
//	@description	Medical report analysis API: upload a report image or PDF and receive structured test results.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/healthchain/medvision
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/medvision/serve.go -o ./swagger --parseDependency --parseInternal
