package scaffolding

func starterFiles() map[string]string {
	return map[string]string{
		".siteforge.yml":                   configTemplate,
		"[[ .Input ]]/index.html":          indexTemplate,
		"[[ .Input ]]/_includes/base.html": baseTemplate,
		"[[ .Input ]]/_data/site.yaml":     "title: \"[[ .Title ]]\"\n",
		"[[ .Input ]]/css/site.css":        cssTemplate,
		"[[ .Input ]]/js/site.js":          jsTemplate,
		"[[ .Input ]]/images/.gitkeep":     "",
	}
}

const configTemplate = `# siteforge configuration. Every key is optional; the values below are the
# defaults except where noted.
input: [[ .Input ]]
output: _site

copy:
  - {source: [[ .Input ]]/images, destination: assets/images, optional: true}

bundles:
  - id: css
    output: assets/css/bundle.css
    sources: ["[[ .Input ]]/css/*.css"]
    transforms: [csso]
    fallback: skip-unavailable
    optional: true
  - id: js
    output: assets/js/bundle.js
    sources: ["[[ .Input ]]/js/*.js"]
    transforms: [terser]
    fallback: skip-unavailable
    optional: true

transforms:
  csso: {command: csso}
  terser: {command: terser, args: [--compress, --mangle]}

watch:
  - [[ .Input ]]/css
  - [[ .Input ]]/js

# Not a default: serve the site from any subdirectory.
post_transforms:
  - {applies_to: "**.html", rewrite: relative-stylesheets}
  - {applies_to: "**.html", rewrite: relative-scripts}
`

const baseTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{block "title" .}}{{.Data.site.title}}{{end}}</title>
  <link rel="stylesheet" href="/assets/css/bundle.css?v={{assetHash "assets/css/bundle.css"}}">
</head>
<body>
  {{block "content" .}}{{end}}
  <footer>&copy; {{year}} {{.Data.site.title}}</footer>
  <script src="/assets/js/bundle.js?v={{cacheBust}}"></script>
</body>
</html>
`

const indexTemplate = `{{define "content"}}
<h1>{{title .Data.site.title}}</h1>
<p>Edit [[ .Input ]]/index.html and run siteforge watch.</p>
{{end}}{{template "base.html" .}}
`

const cssTemplate = `body {
  font-family: system-ui, sans-serif;
  margin: 2rem auto;
  max-width: 40rem;
}
`

const jsTemplate = `document.documentElement.classList.add("js");
`
