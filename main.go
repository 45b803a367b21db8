package main

import "github.com/killallgit/sermon-clips/cmd"

// @title           Sermon Clips API
// @version         1.0
// @description     Clip suggestions and vertical renders for recorded sermons.
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/sermon-clips
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
