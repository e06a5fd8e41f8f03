// Package membership tracks a section's known adults and elders and
// polls them for liveness, synthesizing a MemberLeft event once a
// peer has failed enough consecutive health checks. Table plus
// internal/transport.Peers together implement routing.Node for real
// multi-process deployment.
package membership
