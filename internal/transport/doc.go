// Package transport contains the delivery-channel implementations: a JSON/
// HTTP relay client and an in-process hub for tests. The engine itself only
// sees the domain.Transport and domain.Directory contracts.
package transport
