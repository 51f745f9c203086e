/*
Package remote implements the session that syncbox uses to talk to a remote
server.

A Session is protocol agnostic. It drives a Transport, which supplies the raw
primitives of one protocol (FTP/FTPS in remote/ftp, SFTP in remote/sftp), and
layers the behaviour that both protocols share on top of it:

1) Connection lifecycle. Connect, Reconnect and Disconnect, plus a keep-alive
   loop that sends no-ops while idle and a health check that reconnects a
   session whose transport died.
2) Trust. Server certificates and host keys are checked against the trust
   store, and unknown identities are passed to a caller supplied Validator
   which blocks the handshake until it decides.
3) Listing. Entries are normalized to paths relative to the remote root, no
   matter how the protocol reported them.
4) Safe transfers. Uploads and downloads are staged under a temporary name,
   verified by size, and only then moved over the destination.

Every call that touches the transport holds the session lock, so a single
Session never has more than one operation in flight.
*/
package remote
