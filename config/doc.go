// Package config loads the service configuration shared by the HTTP listener and the
// discovery enabler.
//
// The file follows the layout used by the API Mediation Layer onboarding enablers:
//
//	eureka:
//	  ssl: true
//	  host: localhost
//	  port: 10011
//	  servicePath: '/eureka/apps/'
//	  maxRetries: 30
//	  requestRetryDelay: 1000
//	  heartbeatInterval: 30000
//	instance:
//	  app: pythonservice
//	  hostName: localhost
//	  ipAddr: 127.0.0.1
//	  securePort: {$: 10018, '@enabled': true}
//	  homePageUrl: https://localhost:10018/pythonservice
//	  statusPageUrl: https://localhost:10018/pythonservice/application/info
//	  healthCheckUrl: https://localhost:10018/pythonservice/application/health
//	ssl:
//	  certificate: ../keystore/localhost/localhost.keystore.cer
//	  keystore: ../keystore/localhost/localhost.keystore.key
//	  caFile: ../keystore/localhost/localhost.pem
//
// Relative ssl paths are resolved against the directory holding the file. A subset of
// values can be overridden from the environment (APIML_EUREKA_HOST, APIML_EUREKA_PORT,
// APIML_EUREKA_SSL, APIML_INSTANCE_HOSTNAME, APIML_INSTANCE_IPADDR).
package config
