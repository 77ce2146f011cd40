/*
Package framesync keeps a host page's URL hash and an embedded mini-app's
route in sync.

The host page owns the address bar and the browser history; the mini-app
(the guest) owns its in-frame route and view. The two talk over an
asynchronous, in-order message channel:

	host  -> guest  {"type":"navigate","route":"/foo"}
	guest -> host   {"type":"routeChanged","route":"/foo"}
	guest -> host   {"type":"ready"}

Routes are carried in the fragment as "#!/foo". On load the host injects the
fragment's route once the guest is ready; back/forward navigation is forwarded
to the guest; in-app navigation is reflected as a new history entry.

# Usage

	page := framesync.New(miniapp.Demo())
	if err := page.Open(ctx, "http://localhost/#!/foo"); err != nil {
		log.Fatal(err)
	}
	defer page.Close()

	_ = page.Click(ctx, "Go home")
	_, _ = page.Back(ctx)

	snap := page.Snapshot()
	fmt.Println(snap.Hash, snap.View.Body)

Each operation returns once both frames have settled, so the snapshot always
reflects a consistent state.
*/
package framesync
