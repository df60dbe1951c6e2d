/*
Package enabler onboards the service to a Eureka discovery service, the registry used by
the API Mediation Layer.

The Enabler speaks the Eureka REST protocol:

  - POST {servicePath}{app} with {"instance": {...}} registers the instance
  - PUT {servicePath}{app}/{instanceId} renews the lease (heartbeat)
  - DELETE {servicePath}{app}/{instanceId} removes the instance

Registration attempts are retried with a constant delay (eureka.requestRetryDelay) up to
eureka.maxRetries times; 4xx answers are treated as permanent. After a successful
registration a background loop renews the lease every eureka.heartbeatInterval and
registers again when the discovery service no longer knows the instance.

When eureka.ssl is set, requests are made over mutual TLS using the ssl section of the
service configuration: the service certificate is the client certificate and caFile is
the trust anchor.
*/
package enabler
