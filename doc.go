/*
Package datadictionary keeps a Google Sheets data dictionary in step with the field metadata of a set of
Salesforce objects.

sf-data-dictionary can be used from the command line but is really intended to be run on a schedule, either
from a cron job (sync) or as an HTTP endpoint invoked by a scheduler (serve). Each object has its own worksheet
with the Label, API Name, Help Text and Data Type of every field. Fields that no longer exist are highlighted in
red and retained, new fields are appended and highlighted in pink, and any columns after the first five are left
as-is for hand-maintained notes.

sf-data-dictionary supports the following commands:

  - authorise, to authorise access to Salesforce (connected app) or Google Sheets (OAuth2 client)
  - sync, to update the data dictionary worksheets from the Salesforce object metadata
  - compare, to list the fields that would be added or marked as removed without updating the worksheets
  - get, to download a data dictionary worksheet as a TSV file
  - serve, to run the update as an HTTP endpoint
*/
package datadictionary
