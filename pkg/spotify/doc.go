// Package spotify provides a small client for the Spotify Web API catalog
// endpoints used for playlist generation.
//
// The client authenticates with the client-credentials grant, so it can only
// read public catalog data: track, artist and playlist search, artist top
// tracks, playlist contents and recommendations. It is designed to be used
// as a standalone SDK.
//
// Example usage:
//
//	import "github.com/jfmyers9/crate/pkg/spotify"
//
//	client, err := spotify.NewClient(spotify.Config{
//	    ClientID:     "your-client-id",
//	    ClientSecret: "your-client-secret",
//	    Market:       "US",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	page, err := client.Search().Tracks(ctx, "artist:\"Bad Bunny\"", 20, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range page.Items {
//	    fmt.Println(t.Name)
//	}
package spotify
