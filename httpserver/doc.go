/*
Package httpserver implements the HTTPS surface of the sample service.

# Service Endpoints

  - GET /pythonservice/registerInfo - Register with the discovery service
  - GET /pythonservice/unregisterInfo - Unregister from the discovery service
  - GET /pythonservice/hello - Hello world message
  - GET /pythonservice/apidoc - Swagger document of the service
  - GET /pythonservice/application/info - Build information
  - GET /pythonservice/application/health - Health status

The register and unregister routes are manual trigger points for operators and tests.
They always answer 200 with a fixed message; the result of the discovery call is
reported in the X-Discovery-Result header ("success" or "failure") and logged.

The apidoc route reads the configured document on every request and returns it as
JSON. A missing or malformed document results in a 500 for that request only.

# Operational Endpoints

  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/* - pprof, when enabled

All handlers share a read-only ServiceContext built once at startup; no request
mutates state shared with another request apart from the readiness flag.
*/
package httpserver
