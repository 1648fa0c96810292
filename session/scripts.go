package session

import (
	"fmt"
	"strings"
)

// Scripts the session issues on its own behalf. Command-level script
// building lives in package kevlar; these are the few the engine itself
// needs for subscriptions and upload renaming.

func subscribeScript(event string) string {
	return fmt.Sprintf(`var idNS = stringIDToTypeID( "networkEventSubscribe" );
var desc = new ActionDescriptor();
desc.putClass( stringIDToTypeID( "eventIDAttr" ), stringIDToTypeID( "%s" ) );
executeAction( idNS, desc, DialogModes.NO );
`, escapeJS(event))
}

func unsubscribeScript(event string) string {
	return fmt.Sprintf(`var idNS = stringIDToTypeID( "networkEventUnsubscribe" );
var desc = new ActionDescriptor();
desc.putClass( stringIDToTypeID( "eventIDAttr" ), stringIDToTypeID( "%s" ) );
executeAction( idNS, desc, DialogModes.NO );
`, escapeJS(event))
}

// renameScript copies the uploaded temp file to its suffixed path and
// removes the original.
func renameScript(src, dst string) string {
	return fmt.Sprintf(`var f = File("%s"); f.copy("%s"); f.remove()`,
		escapeJS(src), escapeJS(dst))
}

// escapeJS escapes a value for embedding in a double-quoted script literal.
func escapeJS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}
