// Package managesieve implements the RFC 5804 ManageSieve protocol from
// the client side: dialing, an opportunistic STARTTLS upgrade, SASL
// authentication (PLAIN, LOGIN, DIGEST-MD5, OAUTHBEARER), and the
// mandatory command set (CAPABILITY, PUTSCRIPT, GETSCRIPT, LISTSCRIPTS,
// SETACTIVE, DELETESCRIPT, RENAMESCRIPT, HAVESPACE, CHECKSCRIPT, NOOP,
// LOGOUT).
//
//	c, err := managesieve.Dial(ctx, "mail.example.com:4190", managesieve.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//	if c.Capabilities().Has("STARTTLS") {
//		if err := c.StartTLS(ctx); err != nil {
//			log.Fatal(err)
//		}
//	}
//	if err := c.Authenticate(ctx, "user", "pass", ""); err != nil {
//		log.Fatal(err)
//	}
//	if err := c.PutScript("myrules", script.ToSieve()); err != nil {
//		log.Fatal(err)
//	}
//
// A Client is not safe for concurrent use: each method sends one command
// and blocks until its tagged completion line arrives. Transport,
// protocol, and timeout errors poison the session (State moves to
// StateError); a server NO does not.
//
// This package does not run a ManageSieve server and does not evaluate
// the scripts it transfers.
package managesieve
