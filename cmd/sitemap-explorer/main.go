// Command sitemap-explorer summarizes a website's content structure from
// its sitemap.xml, either for a batch of sites or as an HTTP API.
package main

func main() {
	Execute()
}
