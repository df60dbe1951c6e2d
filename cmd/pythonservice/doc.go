// Package main (cmd/pythonservice) runs the sample service onboarded to the API
// Mediation Layer.
//
// On startup it loads config/service-configuration.yml from the install directory,
// builds the discovery enabler from it, terminates TLS with the certificate and key
// named in the ssl section, listens on 0.0.0.0:10018 and registers with the discovery
// service in the background. A failed registration does not stop the service; it can
// be retried through GET /pythonservice/registerInfo.
//
// Routes:
//
//   - GET /pythonservice/registerInfo - register with the discovery service
//   - GET /pythonservice/unregisterInfo - unregister from the discovery service
//   - GET /pythonservice/hello - hello world
//   - GET /pythonservice/apidoc - swagger document
//   - GET /pythonservice/application/info - build information
//   - GET /pythonservice/application/health - health status
//
// Example usage:
//
//	pythonservice --config=config/service-configuration.yml \
//	    --listen-addr=0.0.0.0:10018 \
//	    --apidoc=./pythonSwagger.json \
//	    --metrics-addr=127.0.0.1:8090
//
// Missing or invalid configuration, or an unreadable certificate or key, aborts
// startup with a non-zero exit code.
package main
